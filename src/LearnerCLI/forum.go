package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/src/internal/domain"
)

var forumCmd = &cobra.Command{
	Use:   "forum",
	Short: "Read and post in course forums",
	Long: `Read and post in course forums.

Examples:
  learnhub forum list 7
  learnhub forum topics 1000
  learnhub forum comments 1001
  learnhub forum post 1000 --title "Week 1" --content "Questions here"
  learnhub forum reply 1001 --content "Thanks!" --parent 1002`,
}

var forumListCmd = &cobra.Command{
	Use:   "list <course-id>",
	Short: "List the forums of a course",
	Args:  cobra.ExactArgs(1),
	RunE:  runForumList,
}

var forumTopicsCmd = &cobra.Command{
	Use:   "topics <forum-id>",
	Short: "List topics, pinned first",
	Args:  cobra.ExactArgs(1),
	RunE:  runForumTopics,
}

var forumCommentsCmd = &cobra.Command{
	Use:   "comments <topic-id>",
	Short: "Show the comment thread of a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runForumComments,
}

var forumPostCmd = &cobra.Command{
	Use:   "post <forum-id>",
	Short: "Start a new topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runForumPost,
}

var forumReplyCmd = &cobra.Command{
	Use:   "reply <topic-id>",
	Short: "Comment on a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runForumReply,
}

var forumCreateCmd = &cobra.Command{
	Use:   "create <course-id>",
	Short: "Create a forum for a course you teach",
	Args:  cobra.ExactArgs(1),
	RunE:  runForumCreate,
}

var forumPinCmd = &cobra.Command{
	Use:   "pin <topic-id>",
	Short: "Pin or unpin a topic in a course you teach",
	Args:  cobra.ExactArgs(1),
	RunE:  runForumPin,
}

func init() {
	forumPostCmd.Flags().String("title", "", "topic title")
	forumPostCmd.Flags().String("content", "", "topic body")
	forumReplyCmd.Flags().String("content", "", "comment body")
	forumReplyCmd.Flags().Int64("parent", 0, "comment id to reply to")
	forumCreateCmd.Flags().String("name", "", "forum name")
	forumCreateCmd.Flags().String("description", "", "forum description")
	forumPinCmd.Flags().Bool("unpin", false, "remove the pin instead")

	forumCmd.AddCommand(forumListCmd, forumTopicsCmd, forumCommentsCmd, forumPostCmd, forumReplyCmd, forumCreateCmd, forumPinCmd)
	rootCmd.AddCommand(forumCmd)
}

func runForumList(cmd *cobra.Command, args []string) error {
	courseID, err := parseID("course id", args[0])
	if err != nil {
		return err
	}
	token, err := sessionToken()
	if err != nil {
		return err
	}
	forums, err := learner.Backend.Forums(cmd.Context(), token, courseID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(forums)
	}
	w := newTable()
	printTableHeader(w, "ID", "NAME", "DESCRIPTION")
	for _, f := range forums {
		fmt.Fprintf(w, "%d\t%s\t%s\n", f.ID, f.Name, truncate(f.Description, 50))
	}
	return w.Flush()
}

func runForumTopics(cmd *cobra.Command, args []string) error {
	forumID, err := parseID("forum id", args[0])
	if err != nil {
		return err
	}
	token, err := sessionToken()
	if err != nil {
		return err
	}
	topics, err := learner.Backend.Topics(cmd.Context(), token, forumID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(topics)
	}
	w := newTable()
	printTableHeader(w, "ID", "", "TITLE", "AUTHOR", "CREATED")
	for _, t := range topics {
		pin, author := "", "-"
		if t.IsPinned {
			pin = "pinned"
		}
		if t.User != nil {
			author = t.User.Username
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, pin, truncate(t.Title, 50), author, t.CreatedDate.Format("2006-01-02"))
	}
	return w.Flush()
}

func runForumComments(cmd *cobra.Command, args []string) error {
	topicID, err := parseID("topic id", args[0])
	if err != nil {
		return err
	}
	token, err := sessionToken()
	if err != nil {
		return err
	}
	comments, err := learner.Backend.Comments(cmd.Context(), token, topicID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(comments)
	}
	if len(comments) == 0 {
		fmt.Println("No comments yet")
		return nil
	}
	printThread(domain.BuildCommentTree(comments), 0)
	return nil
}

func printThread(nodes []*domain.CommentNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		author := "unknown"
		if n.User != nil {
			author = n.User.Username
		}
		fmt.Printf("%s#%d %s (%s)\n", indent, n.ID, author, n.CreatedDate.Format("2006-01-02 15:04"))
		fmt.Printf("%s  %s\n", indent, n.Content)
		printThread(n.Replies, depth+1)
	}
}

func runForumPost(cmd *cobra.Command, args []string) error {
	forumID, err := parseID("forum id", args[0])
	if err != nil {
		return err
	}
	token, err := sessionToken()
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	content, _ := cmd.Flags().GetString("content")
	topic, err := learner.Backend.CreateTopic(cmd.Context(), token, domain.NewTopic{Forum: forumID, Title: title, Content: content})
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(topic)
	}
	fmt.Printf("Topic %d created\n", topic.ID)
	return nil
}

func runForumReply(cmd *cobra.Command, args []string) error {
	topicID, err := parseID("topic id", args[0])
	if err != nil {
		return err
	}
	token, err := sessionToken()
	if err != nil {
		return err
	}
	content, _ := cmd.Flags().GetString("content")
	in := domain.NewComment{Topic: topicID, Content: content}
	if parent, _ := cmd.Flags().GetInt64("parent"); parent > 0 {
		in.Parent = &parent
	}
	comment, err := learner.Backend.CreateComment(cmd.Context(), token, in)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(comment)
	}
	fmt.Printf("Comment %d posted\n", comment.ID)
	return nil
}

func runForumCreate(cmd *cobra.Command, args []string) error {
	courseID, err := parseID("course id", args[0])
	if err != nil {
		return err
	}
	token, err := sessionToken()
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	desc, _ := cmd.Flags().GetString("description")
	forum, err := learner.Backend.CreateForum(cmd.Context(), token, domain.NewForum{Course: courseID, Name: name, Description: desc})
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(forum)
	}
	fmt.Printf("Forum %d created\n", forum.ID)
	return nil
}

func runForumPin(cmd *cobra.Command, args []string) error {
	topicID, err := parseID("topic id", args[0])
	if err != nil {
		return err
	}
	token, err := sessionToken()
	if err != nil {
		return err
	}
	unpin, _ := cmd.Flags().GetBool("unpin")
	topic, err := learner.Backend.PinTopic(cmd.Context(), token, topicID, !unpin)
	if err != nil {
		return err
	}
	if topic.IsPinned {
		fmt.Printf("Topic %d pinned\n", topic.ID)
	} else {
		fmt.Printf("Topic %d unpinned\n", topic.ID)
	}
	return nil
}
