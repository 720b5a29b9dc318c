package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

var (
	app     Server
	usrRepo user.Repository
	crsRepo course.Repository
	cwRepo  coursework.Repository
)

func TestMain(m *testing.M) {
	// error responses must take their production shape
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db := dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	crsRepo = dummydb.NewCourseRepository(db)
	cwRepo = dummydb.NewCourseworkRepository(db)

	policy := authz.NewPolicy(crsRepo)
	app = NewServer(ServerDeps{
		DisableReqLogs: true,
		Logger:         core.NewNopLogger(),
		UserSvc:        user.NewService(usrRepo),
		CourseSvc:      course.NewService(crsRepo, policy),
		CourseworkSvc:  coursework.NewService(cwRepo, crsRepo, policy),
	})

	os.Exit(m.Run())
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody(): %v\nbody: %s", err, rec.Body.String())
	}
}

func Test_home(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / code = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "Welcome to Darasa API!" {
		t.Errorf("GET / body = %q", rec.Body.String())
	}
}

func Test_userApi_login(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "login1", "login1@test.cd", "n0t!s0;fast", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "login2", "login2@test.cd", "n0t!s0;fast", []string{user.RoleStudent}, false)

	tests := []struct {
		name     string
		body     []byte
		wantCode int
	}{
		{name: "by username", body: marchallObj(t, LoginRequest{Username: usr.Username, Password: "n0t!s0;fast"}), wantCode: http.StatusOK},
		{name: "by email", body: marchallObj(t, LoginRequest{Username: usr.Email, Password: "n0t!s0;fast"}), wantCode: http.StatusOK},
		{name: "wrong password", body: marchallObj(t, LoginRequest{Username: usr.Username, Password: "lol"}), wantCode: http.StatusBadRequest},
		{name: "unknown user", body: marchallObj(t, LoginRequest{Username: "ghost", Password: "n0t!s0;fast"}), wantCode: http.StatusBadRequest},
		{name: "deactivated user", body: marchallObj(t, LoginRequest{Username: "login2", Password: "n0t!s0;fast"}), wantCode: http.StatusBadRequest},
		{name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d\nbody: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				decodeBody(t, rec, &resp)
				if resp.Token == "" {
					t.Error("login returned an empty token")
				}
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	body := marchallObj(t, user.NewUser{
		Username:        "newbie",
		Email:           "newbie@test.cd",
		FirstName:       "New",
		LastName:        "Bie",
		Password:        "n0t!s0;fast",
		PasswordConfirm: "n0t!s0;fast",
		Roles:           []string{user.RoleAdmin}, // must be ignored
	})
	req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	var usr user.User
	decodeBody(t, rec, &usr)
	if len(usr.Roles) != 1 || usr.Roles[0] != user.RoleStudent {
		t.Errorf("register roles = %v, want [student]", usr.Roles)
	}

	// duplicate username reads as a field error
	req, rec = newRequest(http.MethodPost, "/v1/users/register", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register code = %d, want 400\nbody: %s", rec.Code, rec.Body.String())
	}
	var fldErrs map[string]string
	decodeBody(t, rec, &fldErrs)
	if _, ok := fldErrs["username"]; !ok {
		t.Errorf("duplicate register errors = %v, want username key", fldErrs)
	}
}

func Test_userApi_query_adminOnly(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "q-stud", "q-stud@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "q-admin", "q-admin@test.cd", "", []string{user.RoleAdmin}, true)

	req, rec := newRequest(http.MethodGet, "/v1/users")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token code = %d, want 401", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/users", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student code = %d, want 403", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/users", getToken(t, admin))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var users []user.User
	decodeBody(t, rec, &users)
	if len(users) == 0 {
		t.Error("admin query returned no users")
	}
}

func Test_userApi_detail(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "det-usr", "det-usr@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, usrRepo, "det-other", "det-other@test.cd", "", []string{user.RoleStudent}, true)

	// users may read their own detail
	req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, usr))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("own detail code = %d, want 200", rec.Code)
	}

	// someone else's detail reads as missing
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, other))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign detail code = %d, want 404", rec.Code)
	}

	// plain users cannot promote themselves
	body := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}})
	req, rec = newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, usr), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("self role update code = %d, want 403", rec.Code)
	}
}

func Test_courseApi_flow(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "c-teach", "c-teach@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "c-stud", "c-stud@test.cd", "", []string{user.RoleStudent}, true)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	// students cannot create courses
	body := marchallObj(t, course.NewCourse{Name: "Algebra", Code: "capi101"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses", studentToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("create by student code = %d, want 403\nbody: %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/courses", teacherToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	var crs course.Course
	decodeBody(t, rec, &crs)

	// student self-enrolls
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/enrollments", crs.ID), studentToken, []byte(`{}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("self-enroll code = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}

	// roster is for the course teacher; the creator counts
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%s/enrollments", crs.ID), teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("roster code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var enrs []course.Enrollment
	decodeBody(t, rec, &enrs)
	if len(enrs) != 2 {
		t.Errorf("roster size = %d, want 2", len(enrs))
	}
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%s/enrollments", crs.ID), studentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("roster by student code = %d, want 403", rec.Code)
	}

	// archive, then enrollment conflicts
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/archive", crs.ID), teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/enrollments", crs.ID), studentToken, []byte(`{}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("enroll on archived code = %d, want 409\nbody: %s", rec.Code, rec.Body.String())
	}

	// archived courses read as missing to non-members but stay visible to members
	outsider := testutil.CreateUser(t, usrRepo, "c-other", "c-other@test.cd", "", []string{user.RoleStudent}, true)
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%s", crs.ID), getToken(t, outsider))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("archived retrieve by outsider code = %d, want 404\nbody: %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/courses/%s", crs.ID), studentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("archived retrieve by member code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	// my courses
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/mine?type=student", studentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
}

func Test_courseworkApi_flow(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "w-teach", "w-teach@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "w-stud", "w-stud@test.cd", "", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, crsRepo, teacher, "wapi101", "Geometry")
	testutil.Enroll(t, crsRepo, crs, student, course.EnrollmentStudent)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	// create assignment
	body := marchallObj(t, coursework.NewAssignment{Title: "HW 1", DueDate: time.Now().UTC().Add(time.Hour), PointsPossible: 100})
	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/assignments", crs.ID), teacherToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create assignment code = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	var a coursework.Assignment
	decodeBody(t, rec, &a)

	// student submits
	body = marchallObj(t, coursework.NewSubmission{Content: "my answer"})
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/assignments/%s/submissions", a.ID), studentToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit code = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	var s coursework.Submission
	decodeBody(t, rec, &s)

	// teacher cannot submit
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/assignments/%s/submissions", a.ID), teacherToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("submit by teacher code = %d, want 403", rec.Code)
	}

	// student reads their own submission back
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/assignments/%s/submissions/mine", a.ID), studentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	// return before grading is a bad request
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/submissions/%s/return", s.ID), teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("return before grade code = %d, want 400\nbody: %s", rec.Code, rec.Body.String())
	}

	// grade then return
	body = marchallObj(t, coursework.GradeSubmission{Score: 85, Feedback: "ok"})
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/submissions/%s/grade", s.ID), teacherToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("grade code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var graded coursework.Submission
	decodeBody(t, rec, &graded)
	if graded.Status != coursework.SubmissionGraded || graded.Score == nil || *graded.Score != 85 {
		t.Errorf("grade response = %+v", graded)
	}

	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/submissions/%s/return", s.ID), teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("return code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	// discussions & comments
	body = marchallObj(t, coursework.NewDiscussion{Title: "Week 1"})
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/discussions", crs.ID), teacherToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create discussion code = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	var d coursework.Discussion
	decodeBody(t, rec, &d)

	body = marchallObj(t, coursework.NewComment{Content: "hello"})
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/discussions/%s/comments", d.ID), studentToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create comment code = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/discussions/%s/comments", d.ID), studentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("comment tree code = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var tree []coursework.Comment
	decodeBody(t, rec, &tree)
	if len(tree) != 1 {
		t.Errorf("comment tree size = %d, want 1", len(tree))
	}
}
