package coursework

import (
	"time"

	"github.com/trezcool/darasa/core"
)

// Submission statuses: submitted → graded → returned.
const (
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
	SubmissionReturned  = "returned"
)

// Material types.
const (
	MaterialDocument = "document"
	MaterialLink     = "link"
	MaterialVideo    = "video"
	MaterialFile     = "file"
)

type Assignment struct {
	ID                  string    `json:"id"`
	CourseID            string    `json:"course_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	PointsPossible      int       `json:"points_possible"`
	DueDate             time.Time `json:"due_date"` // UTC
	AllowLateSubmission bool      `json:"allow_late_submission"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

// IsLate reports whether a submission at submittedAt is past the due date.
// Strictly greater: a submission at the exact due instant is on time.
// AllowLateSubmission only gates acceptance, never this flag.
func (a Assignment) IsLate(submittedAt time.Time) bool {
	return submittedAt.After(a.DueDate)
}

// Submission is unique per (assignment, user): re-submitting replaces
// content/file/timestamp in place instead of creating a second row.
type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	UserID       string    `json:"user_id"`
	Content      string    `json:"content"`
	FilePath     string    `json:"file_path,omitempty"`
	Status       string    `json:"status"`
	Score        *int      `json:"score"`
	Feedback     string    `json:"feedback"`
	SubmittedAt  time.Time `json:"submitted_at"` // UTC
	Late         bool      `json:"late"`         // derived, never stored
}

type Material struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	ContentURL  string    `json:"content_url,omitempty"`
	FilePath    string    `json:"file_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type Discussion struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Comment belongs to a discussion and optionally to a parent comment,
// forming a tree of unbounded depth.
type Comment struct {
	ID           string    `json:"id"`
	DiscussionID string    `json:"discussion_id"`
	UserID       string    `json:"user_id"`
	ParentID     string    `json:"parent_id,omitempty"`
	Content      string    `json:"content"`
	PostedAt     time.Time `json:"posted_at"` // UTC
	Replies      []Comment `json:"replies"`
}

// BuildCommentTree assembles a flat, posted_at-ordered comment list into a
// forest by matching parent ids; sibling order is preserved.
func BuildCommentTree(comments []Comment) []Comment {
	return buildSubTree(comments, "")
}

func buildSubTree(comments []Comment, parentID string) []Comment {
	var tree []Comment
	for _, c := range comments {
		if c.ParentID == parentID {
			c.Replies = buildSubTree(comments, c.ID)
			tree = append(tree, c)
		}
	}
	return tree
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title               string    `json:"title" validate:"required"`
	Description         string    `json:"description"`
	PointsPossible      int       `json:"points_possible" validate:"min=0"`
	DueDate             time.Time `json:"due_date" validate:"required"`
	AllowLateSubmission bool      `json:"allow_late_submission"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return core.Validate.Struct(na)
}

// UpdateAssignment defines the mutable Assignment fields. Zero-valued fields
// are left untouched.
type UpdateAssignment struct {
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	PointsPossible      *int       `json:"points_possible" validate:"omitempty,min=0"`
	DueDate             *time.Time `json:"due_date"`
	AllowLateSubmission *bool      `json:"allow_late_submission"`
}

func (ua *UpdateAssignment) Validate(orig Assignment) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
	if desc := core.CleanString(ua.Description); desc != "" {
		ua.Description = desc
	} else {
		ua.Description = orig.Description
	}
	return core.Validate.Struct(ua)
}

type NewSubmission struct {
	Content  string `json:"content" validate:"required"`
	FilePath string `json:"file_path"`
}

func (ns *NewSubmission) Validate() error {
	ns.Content = core.CleanString(ns.Content)
	return core.Validate.Struct(ns)
}

type GradeSubmission struct {
	Score    int    `json:"score" validate:"min=0"`
	Feedback string `json:"feedback"`
}

func (gs *GradeSubmission) Validate() error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return core.Validate.Struct(gs)
}

type NewMaterial struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Type        string `json:"type" validate:"required,oneof=document link video file"`
	ContentURL  string `json:"content_url" validate:"omitempty,url"`
	FilePath    string `json:"file_path"`
}

func (nm *NewMaterial) Validate() error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return core.Validate.Struct(nm)
}

// UpdateMaterial replaces all mutable Material fields.
type UpdateMaterial struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Type        string `json:"type" validate:"required,oneof=document link video file"`
	ContentURL  string `json:"content_url" validate:"omitempty,url"`
	FilePath    string `json:"file_path"`
}

func (um *UpdateMaterial) Validate() error {
	um.Title = core.CleanString(um.Title)
	um.Description = core.CleanString(um.Description)
	return core.Validate.Struct(um)
}

type NewDiscussion struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (nd *NewDiscussion) Validate() error {
	nd.Title = core.CleanString(nd.Title)
	nd.Description = core.CleanString(nd.Description)
	return core.Validate.Struct(nd)
}

type UpdateDiscussion struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (ud *UpdateDiscussion) Validate() error {
	ud.Title = core.CleanString(ud.Title)
	ud.Description = core.CleanString(ud.Description)
	return core.Validate.Struct(ud)
}

type NewComment struct {
	Content  string `json:"content" validate:"required"`
	ParentID string `json:"parent_id"`
}

func (nc *NewComment) Validate() error {
	nc.Content = core.CleanString(nc.Content)
	return core.Validate.Struct(nc)
}

type UpdateComment struct {
	Content string `json:"content" validate:"required"`
}

func (uc *UpdateComment) Validate() error {
	uc.Content = core.CleanString(uc.Content)
	return core.Validate.Struct(uc)
}
