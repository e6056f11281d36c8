package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/src/internal/domain"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Browse the course catalogue",
	Long: `Browse the course catalogue.

Examples:
  learnhub courses list --search go --category 1
  learnhub courses show 7
  learnhub courses enroll 8
  learnhub courses categories`,
}

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published courses",
	RunE:  runCoursesList,
}

var coursesShowCmd = &cobra.Command{
	Use:   "show <course-id>",
	Short: "Show a course with its chapters and lessons",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoursesShow,
}

var coursesEnrollCmd = &cobra.Command{
	Use:   "enroll <course-id>",
	Short: "Enroll in a course",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoursesEnroll,
}

var coursesCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List course categories",
	RunE:  runCoursesCategories,
}

var coursesTeachersCmd = &cobra.Command{
	Use:   "teachers",
	Short: "List lecturers",
	RunE:  runCoursesTeachers,
}

var coursesMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the courses you teach",
	RunE:  runCoursesMine,
}

var enrolledCmd = &cobra.Command{
	Use:   "enrolled",
	Short: "List the courses you are enrolled in",
	RunE:  runEnrolled,
}

func init() {
	coursesListCmd.Flags().StringP("search", "s", "", "search text")
	coursesListCmd.Flags().Int64("category", 0, "category id")
	coursesListCmd.Flags().Int64("lecturer", 0, "lecturer id")
	coursesListCmd.Flags().Int("page", 1, "page number")
	coursesMineCmd.Flags().Int("page", 1, "page number")

	coursesCmd.AddCommand(coursesListCmd, coursesShowCmd, coursesEnrollCmd, coursesCategoriesCmd, coursesTeachersCmd, coursesMineCmd)
	rootCmd.AddCommand(coursesCmd, enrolledCmd)
}

func runCoursesList(cmd *cobra.Command, args []string) error {
	var q domain.CourseQuery
	q.Search, _ = cmd.Flags().GetString("search")
	q.CategoryID, _ = cmd.Flags().GetInt64("category")
	q.LecturerID, _ = cmd.Flags().GetInt64("lecturer")
	q.Page, _ = cmd.Flags().GetInt("page")

	page, err := learner.Backend.ListCourses(cmd.Context(), q)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(page)
	}
	return printCoursePage(page)
}

func printCoursePage(page *domain.Page[domain.Course]) error {
	if len(page.Results) == 0 {
		fmt.Println("No courses found")
		return nil
	}
	w := newTable()
	printTableHeader(w, "ID", "NAME", "CATEGORY", "LECTURER", "PRICE")
	for _, c := range page.Results {
		category, lecturer := "-", "-"
		if c.Category != nil {
			category = c.Category.Name
		}
		if c.Lecturer != nil {
			lecturer = c.Lecturer.Username
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f\n", c.ID, truncate(c.Name, 40), category, lecturer, c.Price)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if page.Next != nil {
		fmt.Printf("\n%d courses in total; more with --page\n", page.Count)
	}
	return nil
}

func runCoursesShow(cmd *cobra.Command, args []string) error {
	id, err := parseID("course id", args[0])
	if err != nil {
		return err
	}
	// Anonymous visitors may browse; the token only adds enrolment state.
	token, _ := learner.Session.Token()
	course, err := learner.Backend.CourseDetail(cmd.Context(), token, id)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(course)
	}

	fmt.Printf("%s (#%d)\n", course.Name, course.ID)
	if course.Lecturer != nil {
		fmt.Printf("Lecturer:  %s %s\n", course.Lecturer.FirstName, course.Lecturer.LastName)
	}
	if course.Category != nil {
		fmt.Printf("Category:  %s\n", course.Category.Name)
	}
	fmt.Printf("Duration:  %d min\n", course.Duration)
	fmt.Printf("Enrolled:  %t\n", course.IsEnrolled)
	if course.Description != "" {
		fmt.Printf("\n%s\n", course.Description)
	}
	for _, ch := range course.Chapters {
		fmt.Printf("\n%s\n", ch.Name)
		for _, l := range ch.Lessons {
			fmt.Printf("  %-6d %-40s %s\n", l.ID, truncate(l.Name, 40), formatMinutes(l.Duration))
		}
	}
	return nil
}

func runCoursesEnroll(cmd *cobra.Command, args []string) error {
	id, err := parseID("course id", args[0])
	if err != nil {
		return err
	}
	token, err := sessionToken()
	if err != nil {
		return err
	}
	if err := learner.Backend.Enroll(cmd.Context(), token, id); err != nil {
		return err
	}
	fmt.Printf("Enrolled in course %d\n", id)
	return nil
}

func runCoursesCategories(cmd *cobra.Command, args []string) error {
	categories, err := learner.Backend.Categories(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(categories)
	}
	w := newTable()
	printTableHeader(w, "ID", "NAME")
	for _, c := range categories {
		fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
	}
	return w.Flush()
}

func runCoursesTeachers(cmd *cobra.Command, args []string) error {
	teachers, err := learner.Backend.Teachers(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(teachers)
	}
	w := newTable()
	printTableHeader(w, "ID", "USERNAME", "NAME")
	for _, t := range teachers {
		fmt.Fprintf(w, "%d\t%s\t%s %s\n", t.ID, t.Username, t.FirstName, t.LastName)
	}
	return w.Flush()
}

func runCoursesMine(cmd *cobra.Command, args []string) error {
	token, err := sessionToken()
	if err != nil {
		return err
	}
	if !learner.Session.State().User.IsTeacher() {
		return fmt.Errorf("only lecturers have courses of their own")
	}
	pageNum, _ := cmd.Flags().GetInt("page")
	page, err := learner.Backend.MyCourses(cmd.Context(), token, pageNum)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(page)
	}
	return printCoursePage(page)
}

func runEnrolled(cmd *cobra.Command, args []string) error {
	token, err := sessionToken()
	if err != nil {
		return err
	}
	enrolled, err := learner.Backend.EnrolledCourses(cmd.Context(), token)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(enrolled)
	}
	if len(enrolled) == 0 {
		fmt.Println("Not enrolled in any course")
		return nil
	}
	w := newTable()
	printTableHeader(w, "COURSE", "NAME", "LESSONS", "PROGRESS", "ENROLLED")
	for _, e := range enrolled {
		lessons, pct := "-", "-"
		if e.Progress != nil {
			lessons = fmt.Sprintf("%d/%d", e.Progress.CompletedLessons, e.Progress.TotalLessons)
			pct = fmt.Sprintf("%.0f%%", e.Progress.CompletionPercentage)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Course.ID, truncate(e.Course.Name, 40), lessons, pct, e.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
