package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/coursework"
)

type courseworkRepository struct {
	db *DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *DB) *courseworkRepository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateAssignment(_ context.Context, a coursework.Assignment, _ ...core.DBExecutor) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *courseworkRepository) GetAssignmentByID(_ context.Context, id string, _ ...core.DBExecutor) (coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return coursework.Assignment{}, coursework.ErrAssignmentNotFound
}

func (repo *courseworkRepository) GetAssignmentsByCourse(_ context.Context, courseID string, _ ...core.DBExecutor) ([]coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var assignments []coursework.Assignment
	for _, a := range repo.db.assignments {
		if a.CourseID == courseID {
			assignments = append(assignments, *a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].DueDate.Before(assignments[j].DueDate) })
	return assignments, nil
}

func (repo *courseworkRepository) UpdateAssignment(_ context.Context, a coursework.Assignment, allowLate *bool, _ ...core.DBExecutor) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.assignments[a.ID]
	if !ok {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	orig.Title = a.Title
	orig.Description = a.Description
	orig.PointsPossible = a.PointsPossible
	orig.DueDate = a.DueDate
	if allowLate != nil {
		orig.AllowLateSubmission = *allowLate
	}
	orig.UpdatedAt = a.UpdatedAt
	return *orig, nil
}

func (repo *courseworkRepository) DeleteAssignmentByID(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.assignments, id)
	for sID, s := range repo.db.submissions {
		if s.AssignmentID == id {
			delete(repo.db.submissions, sID)
		}
	}
	return nil
}

func (repo *courseworkRepository) UpsertSubmission(_ context.Context, s coursework.Submission, _ ...core.DBExecutor) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, orig := range repo.db.submissions {
		if orig.AssignmentID == s.AssignmentID && orig.UserID == s.UserID {
			orig.Content = s.Content
			orig.FilePath = s.FilePath
			orig.Status = coursework.SubmissionSubmitted
			orig.Score = nil
			orig.Feedback = ""
			orig.SubmittedAt = s.SubmittedAt
			return *orig, nil
		}
	}
	s.ID = uuid.New().String()
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *courseworkRepository) GetSubmissionByID(_ context.Context, id string, _ ...core.DBExecutor) (coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return coursework.Submission{}, coursework.ErrSubmissionNotFound
}

func (repo *courseworkRepository) GetSubmissionForUser(_ context.Context, assignmentID, userID string, _ ...core.DBExecutor) (coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID && s.UserID == userID {
			return *s, nil
		}
	}
	return coursework.Submission{}, coursework.ErrSubmissionNotFound
}

func (repo *courseworkRepository) GetSubmissionsByAssignment(_ context.Context, assignmentID string, _ ...core.DBExecutor) ([]coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var subs []coursework.Submission
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			subs = append(subs, *s)
		}
	}
	sortSubmissions(subs)
	return subs, nil
}

func (repo *courseworkRepository) GetSubmissionsByUser(_ context.Context, userID string, _ ...core.DBExecutor) ([]coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var subs []coursework.Submission
	for _, s := range repo.db.submissions {
		if s.UserID == userID {
			subs = append(subs, *s)
		}
	}
	sortSubmissions(subs)
	return subs, nil
}

func sortSubmissions(subs []coursework.Submission) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
}

func (repo *courseworkRepository) GradeSubmission(_ context.Context, id string, score int, feedback string, _ ...core.DBExecutor) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	s.Status = coursework.SubmissionGraded
	s.Score = &score
	s.Feedback = feedback
	return *s, nil
}

func (repo *courseworkRepository) ReturnSubmission(_ context.Context, id string, _ ...core.DBExecutor) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	s.Status = coursework.SubmissionReturned
	return *s, nil
}

func (repo *courseworkRepository) CreateMaterial(_ context.Context, m coursework.Material, _ ...core.DBExecutor) (coursework.Material, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = uuid.New().String()
	repo.db.materials[m.ID] = &m
	return m, nil
}

func (repo *courseworkRepository) GetMaterialByID(_ context.Context, id string, _ ...core.DBExecutor) (coursework.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.materials[id]; ok {
		return *m, nil
	}
	return coursework.Material{}, coursework.ErrMaterialNotFound
}

func (repo *courseworkRepository) GetMaterialsByCourse(_ context.Context, courseID string, _ ...core.DBExecutor) ([]coursework.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var materials []coursework.Material
	for _, m := range repo.db.materials {
		if m.CourseID == courseID {
			materials = append(materials, *m)
		}
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].CreatedAt.Before(materials[j].CreatedAt) })
	return materials, nil
}

func (repo *courseworkRepository) UpdateMaterial(_ context.Context, m coursework.Material, _ ...core.DBExecutor) (coursework.Material, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.materials[m.ID]
	if !ok {
		return coursework.Material{}, coursework.ErrMaterialNotFound
	}
	orig.Title = m.Title
	orig.Description = m.Description
	orig.Type = m.Type
	orig.ContentURL = m.ContentURL
	orig.FilePath = m.FilePath
	orig.UpdatedAt = m.UpdatedAt
	return *orig, nil
}

func (repo *courseworkRepository) DeleteMaterialByID(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.materials, id)
	return nil
}

func (repo *courseworkRepository) CreateDiscussion(_ context.Context, d coursework.Discussion, _ ...core.DBExecutor) (coursework.Discussion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	d.ID = uuid.New().String()
	repo.db.discussions[d.ID] = &d
	return d, nil
}

func (repo *courseworkRepository) GetDiscussionByID(_ context.Context, id string, _ ...core.DBExecutor) (coursework.Discussion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if d, ok := repo.db.discussions[id]; ok {
		return *d, nil
	}
	return coursework.Discussion{}, coursework.ErrDiscussionNotFound
}

func (repo *courseworkRepository) GetDiscussionsByCourse(_ context.Context, courseID string, _ ...core.DBExecutor) ([]coursework.Discussion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var discussions []coursework.Discussion
	for _, d := range repo.db.discussions {
		if d.CourseID == courseID {
			discussions = append(discussions, *d)
		}
	}
	sort.Slice(discussions, func(i, j int) bool { return discussions[i].CreatedAt.Before(discussions[j].CreatedAt) })
	return discussions, nil
}

func (repo *courseworkRepository) UpdateDiscussion(_ context.Context, d coursework.Discussion, _ ...core.DBExecutor) (coursework.Discussion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.discussions[d.ID]
	if !ok {
		return coursework.Discussion{}, coursework.ErrDiscussionNotFound
	}
	orig.Title = d.Title
	orig.Description = d.Description
	orig.UpdatedAt = d.UpdatedAt
	return *orig, nil
}

func (repo *courseworkRepository) DeleteDiscussionByID(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.discussions, id)
	for cID, c := range repo.db.comments {
		if c.DiscussionID == id {
			delete(repo.db.comments, cID)
		}
	}
	return nil
}

func (repo *courseworkRepository) CreateComment(_ context.Context, c coursework.Comment, _ ...core.DBExecutor) (coursework.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.comments[c.ID] = &c
	return c, nil
}

func (repo *courseworkRepository) GetCommentByID(_ context.Context, id string, _ ...core.DBExecutor) (coursework.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.comments[id]; ok {
		return *c, nil
	}
	return coursework.Comment{}, coursework.ErrCommentNotFound
}

func (repo *courseworkRepository) GetCommentsByDiscussion(_ context.Context, discussionID string, _ ...core.DBExecutor) ([]coursework.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var comments []coursework.Comment
	for _, c := range repo.db.comments {
		if c.DiscussionID == discussionID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].PostedAt.Equal(comments[j].PostedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].PostedAt.Before(comments[j].PostedAt)
	})
	return comments, nil
}

func (repo *courseworkRepository) UpdateComment(_ context.Context, c coursework.Comment, _ ...core.DBExecutor) (coursework.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.comments[c.ID]
	if !ok {
		return coursework.Comment{}, coursework.ErrCommentNotFound
	}
	orig.Content = c.Content
	return *orig, nil
}

// DeleteCommentByID removes the comment and, recursively, its replies.
func (repo *courseworkRepository) DeleteCommentByID(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.deleteCommentTree(id)
	return nil
}

func (repo *courseworkRepository) deleteCommentTree(id string) {
	delete(repo.db.comments, id)
	for cID, c := range repo.db.comments {
		if c.ParentID == id {
			repo.deleteCommentTree(cID)
		}
	}
}
