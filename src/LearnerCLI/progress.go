package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/src/internal/domain"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show and record lesson progress",
	Long: `Show and record lesson progress.

Examples:
  learnhub progress show 7
  learnhub progress update 7 120 --watch 95 --percent 100`,
}

var progressShowCmd = &cobra.Command{
	Use:   "show <course-id>",
	Short: "Show per-lesson progress for a course",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgressShow,
}

var progressUpdateCmd = &cobra.Command{
	Use:   "update <course-id> <lesson-id>",
	Short: "Record watch time and completion for a lesson",
	Long: `Record watch time and completion for a lesson.

A completion of 90 percent or more marks the lesson completed.`,
	Args: cobra.ExactArgs(2),
	RunE: runProgressUpdate,
}

func init() {
	progressUpdateCmd.Flags().Int64("watch", 0, "watched seconds")
	progressUpdateCmd.Flags().Float64("percent", 0, "completion percentage (0-100)")

	progressCmd.AddCommand(progressShowCmd, progressUpdateCmd)
	rootCmd.AddCommand(progressCmd)
}

func runProgressShow(cmd *cobra.Command, args []string) error {
	courseID, err := parseID("course id", args[0])
	if err != nil {
		return err
	}
	data, err := learner.Progress.GetLessonProgress(cmd.Context(), courseID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(data)
	}
	printLearnData(data)
	return nil
}

func printLearnData(data *domain.CourseLearnData) {
	cp := data.CourseProgress
	name := cp.CourseName
	if name == "" {
		name = fmt.Sprintf("Course %d", cp.Course)
	}
	fmt.Printf("%s: %d/%d lessons, %.0f%% complete, %s watched\n\n",
		name, cp.CompletedLessons, cp.TotalLessons, cp.CompletionPercentage, formatMinutes(cp.TotalWatchTime))

	if len(data.LessonProgresses) == 0 {
		fmt.Println("No lesson progress yet")
		return
	}
	w := newTable()
	printTableHeader(w, "LESSON", "NAME", "STATUS", "WATCHED", "PERCENT")
	for _, r := range data.LessonProgresses {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f%%\n",
			r.Lesson, truncate(r.LessonName, 40), r.Status, formatMinutes(r.WatchTime), r.CompletionPercentage)
	}
	_ = w.Flush()
}

func runProgressUpdate(cmd *cobra.Command, args []string) error {
	courseID, err := parseID("course id", args[0])
	if err != nil {
		return err
	}
	lessonID, err := parseID("lesson id", args[1])
	if err != nil {
		return err
	}
	watch, _ := cmd.Flags().GetInt64("watch")
	percent, _ := cmd.Flags().GetFloat64("percent")

	if err := learner.Progress.UpdateLessonProgress(cmd.Context(), courseID, lessonID, watch, percent); err != nil {
		return err
	}
	status := domain.StatusFor(percent, false)
	fmt.Printf("Lesson %d recorded as %s\n", lessonID, status)
	if status == domain.LessonCompleted {
		fmt.Println("Lesson completed!")
	}
	return nil
}
