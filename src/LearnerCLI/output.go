package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/learnhub/learnhub/src/internal/platform/apierr"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printTableHeader(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", apierr.ErrValidation, what, arg)
	}
	return id, nil
}

// sessionToken returns the signed-in user's token.
func sessionToken() (string, error) {
	token, ok := learner.Session.Token()
	if !ok {
		return "", fmt.Errorf("%w: run `learnhub login` first", apierr.ErrUnauthenticated)
	}
	return token, nil
}

func formatMinutes(seconds float64) string {
	s := int64(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
