package coursework_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

type fixture struct {
	svc     *coursework.Service
	cwRepo  coursework.Repository
	crsRepo course.Repository

	teacher user.User
	student user.User
	other   user.User
	admin   user.User
	crs     course.Course
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)
	cwRepo := dummydb.NewCourseworkRepository(db)
	svc := coursework.NewService(cwRepo, crsRepo, authz.NewPolicy(crsRepo))

	f := &fixture{
		svc:     svc,
		cwRepo:  cwRepo,
		crsRepo: crsRepo,
		teacher: testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", []string{user.RoleTeacher}, true),
		student: testutil.CreateUser(t, usrRepo, "stud", "stud@test.cd", "", []string{user.RoleStudent}, true),
		other:   testutil.CreateUser(t, usrRepo, "other", "other@test.cd", "", []string{user.RoleStudent}, true),
		admin:   testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true),
	}
	f.crs = testutil.CreateCourse(t, crsRepo, f.teacher, "mat101", "Algebra")
	testutil.Enroll(t, crsRepo, f.crs, f.student, course.EnrollmentStudent)
	return f
}

func actorFor(usr user.User) authz.Actor {
	return authz.Actor{ID: usr.ID, Roles: usr.Roles}
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	due := time.Now().UTC().Add(time.Hour)
	a := testutil.CreateAssignment(t, f.cwRepo, f.crs, "HW 1", due, false)

	// teacher cannot submit
	if _, err := f.svc.Submit(ctx, actorFor(f.teacher), a.ID, coursework.NewSubmission{Content: "x"}); err != authz.ErrUnauthorized {
		t.Fatalf("Submit() by teacher error = %v, want ErrUnauthorized", err)
	}
	// nor can a non-member
	if _, err := f.svc.Submit(ctx, actorFor(f.other), a.ID, coursework.NewSubmission{Content: "x"}); err != authz.ErrUnauthorized {
		t.Fatalf("Submit() by non-member error = %v, want ErrUnauthorized", err)
	}

	s, err := f.svc.Submit(ctx, actorFor(f.student), a.ID, coursework.NewSubmission{Content: "v1"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if s.Status != coursework.SubmissionSubmitted {
		t.Errorf("Submit() status = %q, want submitted", s.Status)
	}
	if s.Late {
		t.Error("Submit() before due date flagged late")
	}

	// grade it, then re-submit: the grade must not survive
	if _, err = f.svc.Grade(ctx, actorFor(f.teacher), s.ID, coursework.GradeSubmission{Score: 90, Feedback: "good"}); err != nil {
		t.Fatalf("Grade() failed: %v", err)
	}
	s2, err := f.svc.Submit(ctx, actorFor(f.student), a.ID, coursework.NewSubmission{Content: "v2"})
	if err != nil {
		t.Fatalf("Submit() (resubmit) failed: %v", err)
	}
	if s2.ID != s.ID {
		t.Errorf("resubmission created a new row: %q != %q", s2.ID, s.ID)
	}
	if s2.Content != "v2" {
		t.Errorf("resubmission content = %q, want v2", s2.Content)
	}
	if s2.Status != coursework.SubmissionSubmitted {
		t.Errorf("resubmission status = %q, want submitted", s2.Status)
	}
	if s2.Score != nil {
		t.Errorf("resubmission kept stale score %v", *s2.Score)
	}
	if s2.Feedback != "" {
		t.Errorf("resubmission kept stale feedback %q", s2.Feedback)
	}
}

func TestService_Submit_lateness(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pastDue := time.Now().UTC().Add(-time.Hour)

	// strict deadline: past-due submission is rejected outright
	strict := testutil.CreateAssignment(t, f.cwRepo, f.crs, "Strict HW", pastDue, false)
	if _, err := f.svc.Submit(ctx, actorFor(f.student), strict.ID, coursework.NewSubmission{Content: "x"}); err != coursework.ErrLateSubmission {
		t.Errorf("Submit() past due error = %v, want ErrLateSubmission", err)
	}

	// lenient deadline: accepted but flagged late
	lenient := testutil.CreateAssignment(t, f.cwRepo, f.crs, "Lenient HW", pastDue, true)
	s, err := f.svc.Submit(ctx, actorFor(f.student), lenient.ID, coursework.NewSubmission{Content: "x"})
	if err != nil {
		t.Fatalf("Submit() past due (late allowed) failed: %v", err)
	}
	if !s.Late {
		t.Error("late submission not flagged late")
	}

	// a submission at the exact due instant is on time
	atDue := coursework.Assignment{DueDate: pastDue}
	if atDue.IsLate(pastDue) {
		t.Error("IsLate() at the exact due instant = true, want false")
	}
	if !atDue.IsLate(pastDue.Add(time.Nanosecond)) {
		t.Error("IsLate() just past the due instant = false, want true")
	}
}

func TestService_GradeAndReturn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.cwRepo, f.crs, "HW 1", time.Now().UTC().Add(time.Hour), false)
	s, err := f.svc.Submit(ctx, actorFor(f.student), a.ID, coursework.NewSubmission{Content: "x"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	// students cannot grade, not even their own
	if _, err = f.svc.Grade(ctx, actorFor(f.student), s.ID, coursework.GradeSubmission{Score: 100}); err != authz.ErrUnauthorized {
		t.Fatalf("Grade() by student error = %v, want ErrUnauthorized", err)
	}

	// return is only reachable from graded
	if _, err = f.svc.Return(ctx, actorFor(f.teacher), s.ID); err != coursework.ErrNotGraded {
		t.Fatalf("Return() before grading error = %v, want ErrNotGraded", err)
	}

	graded, err := f.svc.Grade(ctx, actorFor(f.teacher), s.ID, coursework.GradeSubmission{Score: 85, Feedback: "ok"})
	if err != nil {
		t.Fatalf("Grade() failed: %v", err)
	}
	if graded.Status != coursework.SubmissionGraded {
		t.Errorf("Grade() status = %q, want graded", graded.Status)
	}
	if graded.Score == nil || *graded.Score != 85 {
		t.Errorf("Grade() score = %v, want 85", graded.Score)
	}

	returned, err := f.svc.Return(ctx, actorFor(f.teacher), s.ID)
	if err != nil {
		t.Fatalf("Return() failed: %v", err)
	}
	if returned.Status != coursework.SubmissionReturned {
		t.Errorf("Return() status = %q, want returned", returned.Status)
	}
}

func TestService_submissionVisibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.cwRepo, f.crs, "HW 1", time.Now().UTC().Add(time.Hour), false)
	s, err := f.svc.Submit(ctx, actorFor(f.student), a.ID, coursework.NewSubmission{Content: "x"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	// owner may read their own
	if _, err = f.svc.GetSubmission(ctx, actorFor(f.student), s.ID); err != nil {
		t.Errorf("GetSubmission() by owner failed: %v", err)
	}
	// another student may not, and cannot even learn it exists
	if _, err = f.svc.GetSubmission(ctx, actorFor(f.other), s.ID); err != authz.ErrUnauthorized {
		t.Errorf("GetSubmission() by other error = %v, want ErrUnauthorized", err)
	}
	// the course teacher may
	if _, err = f.svc.GetSubmission(ctx, actorFor(f.teacher), s.ID); err != nil {
		t.Errorf("GetSubmission() by teacher failed: %v", err)
	}

	// grading list is teacher-only
	if _, err = f.svc.SubmissionsByAssignment(ctx, actorFor(f.student), a.ID); err != authz.ErrUnauthorized {
		t.Errorf("SubmissionsByAssignment() by student error = %v, want ErrUnauthorized", err)
	}
	subs, err := f.svc.SubmissionsByAssignment(ctx, actorFor(f.teacher), a.ID)
	if err != nil {
		t.Fatalf("SubmissionsByAssignment() failed: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("SubmissionsByAssignment() returned %d, want 1", len(subs))
	}

	// per-user history is self-or-admin
	if _, err = f.svc.SubmissionsByUser(ctx, actorFor(f.other), f.student.ID); err != authz.ErrUnauthorized {
		t.Errorf("SubmissionsByUser() by other error = %v, want ErrUnauthorized", err)
	}
	if _, err = f.svc.SubmissionsByUser(ctx, actorFor(f.student), f.student.ID); err != nil {
		t.Errorf("SubmissionsByUser() by self failed: %v", err)
	}
	if _, err = f.svc.SubmissionsByUser(ctx, actorFor(f.admin), f.student.ID); err != nil {
		t.Errorf("SubmissionsByUser() by admin failed: %v", err)
	}
}

func TestService_assignments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	due := time.Now().UTC().Add(time.Hour)

	// only the course teacher may create assignments
	if _, err := f.svc.CreateAssignment(ctx, actorFor(f.student), f.crs.ID, coursework.NewAssignment{Title: "HW", DueDate: due}); err != authz.ErrUnauthorized {
		t.Fatalf("CreateAssignment() by student error = %v, want ErrUnauthorized", err)
	}
	a, err := f.svc.CreateAssignment(ctx, actorFor(f.teacher), f.crs.ID, coursework.NewAssignment{Title: "HW", DueDate: due})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}

	// any active member may read
	if _, err = f.svc.GetAssignment(ctx, actorFor(f.student), a.ID); err != nil {
		t.Errorf("GetAssignment() by student failed: %v", err)
	}
	if _, err = f.svc.GetAssignment(ctx, actorFor(f.other), a.ID); err != authz.ErrUnauthorized {
		t.Errorf("GetAssignment() by non-member error = %v, want ErrUnauthorized", err)
	}

	// deleting the assignment takes its submissions with it
	s, err := f.svc.Submit(ctx, actorFor(f.student), a.ID, coursework.NewSubmission{Content: "x"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if err = f.svc.DeleteAssignment(ctx, actorFor(f.teacher), a.ID); err != nil {
		t.Fatalf("DeleteAssignment() failed: %v", err)
	}
	if _, err = f.cwRepo.GetSubmissionByID(ctx, s.ID); err != coursework.ErrSubmissionNotFound {
		t.Errorf("GetSubmissionByID() after cascade error = %v, want ErrSubmissionNotFound", err)
	}
}

func TestService_materials(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	nm := coursework.NewMaterial{Title: "Syllabus", Type: coursework.MaterialLink, ContentURL: "https://example.com/syllabus"}

	if _, err := f.svc.CreateMaterial(ctx, actorFor(f.student), f.crs.ID, nm); err != authz.ErrUnauthorized {
		t.Fatalf("CreateMaterial() by student error = %v, want ErrUnauthorized", err)
	}
	m, err := f.svc.CreateMaterial(ctx, actorFor(f.teacher), f.crs.ID, nm)
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}

	if _, err = f.svc.GetMaterial(ctx, actorFor(f.student), m.ID); err != nil {
		t.Errorf("GetMaterial() by student failed: %v", err)
	}
	if _, err = f.svc.GetMaterial(ctx, actorFor(f.other), m.ID); err != authz.ErrUnauthorized {
		t.Errorf("GetMaterial() by non-member error = %v, want ErrUnauthorized", err)
	}

	materials, err := f.svc.MaterialsByCourse(ctx, actorFor(f.student), f.crs.ID)
	if err != nil {
		t.Fatalf("MaterialsByCourse() failed: %v", err)
	}
	if len(materials) != 1 {
		t.Errorf("MaterialsByCourse() returned %d, want 1", len(materials))
	}
}

func TestService_discussionsAndComments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.svc.CreateDiscussion(ctx, actorFor(f.teacher), f.crs.ID, coursework.NewDiscussion{Title: "Week 1"})
	if err != nil {
		t.Fatalf("CreateDiscussion() failed: %v", err)
	}

	// three-level thread: root -> reply -> nested reply, plus a second root
	root, err := f.svc.CreateComment(ctx, actorFor(f.student), d.ID, coursework.NewComment{Content: "root"})
	if err != nil {
		t.Fatalf("CreateComment() failed: %v", err)
	}
	reply, err := f.svc.CreateComment(ctx, actorFor(f.teacher), d.ID, coursework.NewComment{Content: "reply", ParentID: root.ID})
	if err != nil {
		t.Fatalf("CreateComment() (reply) failed: %v", err)
	}
	nested, err := f.svc.CreateComment(ctx, actorFor(f.student), d.ID, coursework.NewComment{Content: "nested", ParentID: reply.ID})
	if err != nil {
		t.Fatalf("CreateComment() (nested) failed: %v", err)
	}
	root2, err := f.svc.CreateComment(ctx, actorFor(f.student), d.ID, coursework.NewComment{Content: "root2"})
	if err != nil {
		t.Fatalf("CreateComment() (root2) failed: %v", err)
	}

	tree, err := f.svc.CommentTree(ctx, actorFor(f.student), d.ID)
	if err != nil {
		t.Fatalf("CommentTree() failed: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("CommentTree() has %d roots, want 2", len(tree))
	}
	if tree[0].ID != root.ID || tree[1].ID != root2.ID {
		t.Errorf("CommentTree() root order = [%s %s], want [%s %s]", tree[0].ID, tree[1].ID, root.ID, root2.ID)
	}
	if len(tree[0].Replies) != 1 || tree[0].Replies[0].ID != reply.ID {
		t.Fatalf("CommentTree() first root replies = %+v, want [%s]", tree[0].Replies, reply.ID)
	}
	if len(tree[0].Replies[0].Replies) != 1 || tree[0].Replies[0].Replies[0].ID != nested.ID {
		t.Errorf("CommentTree() nesting lost at depth 3")
	}

	// a parent from another discussion is rejected
	d2, err := f.svc.CreateDiscussion(ctx, actorFor(f.teacher), f.crs.ID, coursework.NewDiscussion{Title: "Week 2"})
	if err != nil {
		t.Fatalf("CreateDiscussion() failed: %v", err)
	}
	if _, err = f.svc.CreateComment(ctx, actorFor(f.student), d2.ID, coursework.NewComment{Content: "x", ParentID: root.ID}); err != coursework.ErrParentMismatch {
		t.Errorf("CreateComment() with foreign parent error = %v, want ErrParentMismatch", err)
	}

	// comment editing: creator or course teacher
	if _, err = f.svc.UpdateComment(ctx, actorFor(f.other), root.ID, coursework.UpdateComment{Content: "hax"}); err != authz.ErrUnauthorized {
		t.Errorf("UpdateComment() by other error = %v, want ErrUnauthorized", err)
	}
	if _, err = f.svc.UpdateComment(ctx, actorFor(f.student), root.ID, coursework.UpdateComment{Content: "edited"}); err != nil {
		t.Errorf("UpdateComment() by creator failed: %v", err)
	}
	if _, err = f.svc.UpdateComment(ctx, actorFor(f.teacher), root.ID, coursework.UpdateComment{Content: "moderated"}); err != nil {
		t.Errorf("UpdateComment() by teacher failed: %v", err)
	}

	// deleting a comment takes its reply subtree with it
	if err = f.svc.DeleteComment(ctx, actorFor(f.teacher), root.ID); err != nil {
		t.Fatalf("DeleteComment() failed: %v", err)
	}
	flat, err := f.cwRepo.GetCommentsByDiscussion(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetCommentsByDiscussion() failed: %v", err)
	}
	if len(flat) != 1 || flat[0].ID != root2.ID {
		t.Errorf("after cascade delete, comments = %+v, want only %s", flat, root2.ID)
	}
}

func TestService_archivedCourseFreezesCoursework(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := testutil.CreateAssignment(t, f.cwRepo, f.crs, "HW 1", time.Now().UTC().Add(time.Hour), false)
	d, err := f.svc.CreateDiscussion(ctx, actorFor(f.teacher), f.crs.ID, coursework.NewDiscussion{Title: "Week 1"})
	if err != nil {
		t.Fatalf("CreateDiscussion() failed: %v", err)
	}

	archived := true
	if _, err = f.crsRepo.UpdateCourse(ctx, course.Course{ID: f.crs.ID, UpdatedAt: time.Now().UTC()}, &archived); err != nil {
		t.Fatalf("UpdateCourse() failed: %v", err)
	}

	// mutations freeze
	if _, err = f.svc.CreateAssignment(ctx, actorFor(f.teacher), f.crs.ID, coursework.NewAssignment{Title: "HW 2", DueDate: time.Now().Add(time.Hour)}); err != authz.ErrCourseArchived {
		t.Errorf("CreateAssignment() on archived error = %v, want ErrCourseArchived", err)
	}
	if _, err = f.svc.Submit(ctx, actorFor(f.student), a.ID, coursework.NewSubmission{Content: "x"}); err != authz.ErrCourseArchived {
		t.Errorf("Submit() on archived error = %v, want ErrCourseArchived", err)
	}
	if _, err = f.svc.CreateComment(ctx, actorFor(f.student), d.ID, coursework.NewComment{Content: "x"}); err != authz.ErrCourseArchived {
		t.Errorf("CreateComment() on archived error = %v, want ErrCourseArchived", err)
	}

	// reads keep working for members
	if _, err = f.svc.GetAssignment(ctx, actorFor(f.student), a.ID); err != nil {
		t.Errorf("GetAssignment() on archived failed: %v", err)
	}
	if _, err = f.svc.CommentTree(ctx, actorFor(f.student), d.ID); err != nil {
		t.Errorf("CommentTree() on archived failed: %v", err)
	}
}
