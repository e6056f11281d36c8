package devbackend

import (
	"sort"

	"github.com/learnhub/learnhub/src/internal/domain"
)

func author(p domain.UserProfile) *domain.Author {
	return &domain.Author{ID: p.ID, Username: p.Username, Avatar: p.Avatar}
}

// canPostLocked allows the course lecturer and enrolled learners.
func (s *State) canPostLocked(user domain.UserProfile, courseID int64) bool {
	c, ok := s.courses[courseID]
	if !ok {
		return false
	}
	if c.IsLecturer(&user) {
		return true
	}
	_, enrolled := s.enrolments[user.ID][courseID]
	return enrolled
}

func (s *State) forumsFor(courseID int64) []domain.Forum {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Forum{}
	for _, f := range s.forums {
		if f.Course == courseID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) createForum(user domain.UserProfile, in domain.NewForum) (domain.Forum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[in.Course]
	if !ok {
		return domain.Forum{}, errNotFound
	}
	if !c.IsLecturer(&user) {
		return domain.Forum{}, errForbidden
	}
	f := &domain.Forum{ID: s.id(), Name: in.Name, Description: in.Description, Course: in.Course}
	s.forums[f.ID] = f
	return *f, nil
}

// topicsFor lists pinned topics first, then newest first.
func (s *State) topicsFor(forumID int64) []domain.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Topic{}
	for _, t := range s.topics {
		if t.Forum == forumID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *State) createTopic(user domain.UserProfile, in domain.NewTopic) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.forums[in.Forum]
	if !ok {
		return domain.Topic{}, errNotFound
	}
	if !s.canPostLocked(user, f.Course) {
		return domain.Topic{}, errNotEnrolled
	}
	t := &domain.Topic{
		ID:          s.id(),
		Forum:       in.Forum,
		Title:       in.Title,
		Content:     in.Content,
		User:        author(user),
		CreatedDate: s.now(),
	}
	s.topics[t.ID] = t
	return *t, nil
}

func (s *State) pinTopic(user domain.UserProfile, topicID int64, pinned bool) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topicID]
	if !ok {
		return domain.Topic{}, errNotFound
	}
	f := s.forums[t.Forum]
	if c := s.courses[f.Course]; c == nil || !c.IsLecturer(&user) {
		return domain.Topic{}, errForbidden
	}
	t.IsPinned = pinned
	return *t, nil
}

// commentsFor returns the flat list in creation order; clients nest it.
func (s *State) commentsFor(topicID int64) []domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Comment{}
	for _, c := range s.comments {
		if c.Topic == topicID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) createComment(user domain.UserProfile, in domain.NewComment) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[in.Topic]
	if !ok {
		return domain.Comment{}, errNotFound
	}
	if !s.canPostLocked(user, s.forums[t.Forum].Course) {
		return domain.Comment{}, errNotEnrolled
	}
	if in.Parent != nil {
		parent, ok := s.comments[*in.Parent]
		if !ok || parent.Topic != in.Topic {
			return domain.Comment{}, &rejection{400, "Parent comment does not belong to this topic."}
		}
	}
	c := &domain.Comment{
		ID:          s.id(),
		Topic:       in.Topic,
		Content:     in.Content,
		Parent:      in.Parent,
		User:        author(user),
		CreatedDate: s.now(),
	}
	s.comments[c.ID] = c
	return *c, nil
}
