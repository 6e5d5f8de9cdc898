package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/campusworks/campusfix/internal/domain/issue"
	"github.com/campusworks/campusfix/internal/domain/job"
	"github.com/campusworks/campusfix/internal/domain/user"
	"github.com/campusworks/campusfix/internal/http/handlers"
	"github.com/campusworks/campusfix/internal/http/middlewares"
	"github.com/campusworks/campusfix/internal/jobs"
	"github.com/campusworks/campusfix/internal/upload"
	"github.com/gin-gonic/gin"
)

type fakeIssuesRepo struct {
	createFn       func(ctx context.Context, i issue.Issue, jobReq *job.CreateRequest) (issue.Issue, error)
	getFn          func(ctx context.Context, id string) (issue.Issue, error)
	listByCreator  func(ctx context.Context, userID string) ([]issue.Issue, error)
	listAllFn      func(ctx context.Context) ([]issue.Issue, error)
	updateStatusFn func(ctx context.Context, id string, status issue.Status, remarks *string, jobReq *job.CreateRequest) (issue.Issue, error)
}

func (f *fakeIssuesRepo) CreateWithJob(ctx context.Context, i issue.Issue, jobReq *job.CreateRequest) (issue.Issue, error) {
	if f.createFn != nil {
		return f.createFn(ctx, i, jobReq)
	}
	return i, nil
}

func (f *fakeIssuesRepo) GetByID(ctx context.Context, id string) (issue.Issue, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return issue.Issue{}, issue.ErrNotFound
}

func (f *fakeIssuesRepo) ListByCreator(ctx context.Context, userID string) ([]issue.Issue, error) {
	if f.listByCreator != nil {
		return f.listByCreator(ctx, userID)
	}
	return nil, nil
}

func (f *fakeIssuesRepo) ListAll(ctx context.Context) ([]issue.Issue, error) {
	if f.listAllFn != nil {
		return f.listAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeIssuesRepo) UpdateStatusWithJob(ctx context.Context, id string, status issue.Status, remarks *string, jobReq *job.CreateRequest) (issue.Issue, error) {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status, remarks, jobReq)
	}
	return issue.Issue{}, issue.ErrNotFound
}

type fakeSaver struct {
	path string
}

func (f *fakeSaver) SaveImage(ctx *gin.Context, file *multipart.FileHeader) (string, error) {
	if err := upload.ValidateImage(file); err != nil {
		return "", err
	}
	return f.path, nil
}

type fakeNudger struct {
	calls int
}

func (f *fakeNudger) Nudge(ctx context.Context) error {
	f.calls++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func asUser(u user.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middlewares.SetIdentity(c, u)
		c.Next()
	}
}

type formFile struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}

	if file != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.name+`"`)
		hdr.Set("Content-Type", file.contentType)

		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return &buf, w.FormDataContentType()
}

var reporter = user.User{ID: "stu-1", Email: "priya@campus.edu", Name: "Priya N", Role: user.RoleStudent}

func TestCreateIssueHandler(t *testing.T) {
	validFields := map[string]string{
		"title":       "Tap leaking in block C",
		"description": "Water pooling near room C-204 since yesterday.",
		"category":    "Water",
	}

	tests := []struct {
		name       string
		fields     map[string]string
		file       *formFile
		wantStatus int
		wantCode   string
		wantImage  bool
	}{
		{
			name:       "without_image",
			fields:     validFields,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "with_image",
			fields:     validFields,
			file:       &formFile{field: "image", name: "leak.jpg", contentType: "image/jpeg", data: []byte("jpegdata")},
			wantStatus: http.StatusCreated,
			wantImage:  true,
		},
		{
			name:       "non_image_upload",
			fields:     validFields,
			file:       &formFile{field: "image", name: "notes.pdf", contentType: "application/pdf", data: []byte("%PDF")},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_image",
		},
		{
			name: "missing_title",
			fields: map[string]string{
				"description": "Water pooling near room C-204.",
				"category":    "Water",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name: "unknown_category",
			fields: map[string]string{
				"title":       "Tap leaking in block C",
				"description": "Water pooling near room C-204.",
				"category":    "Plumbing",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var gotJob *job.CreateRequest
			var gotIssue issue.Issue

			repo := &fakeIssuesRepo{
				createFn: func(ctx context.Context, i issue.Issue, jobReq *job.CreateRequest) (issue.Issue, error) {
					gotIssue = i
					gotJob = jobReq
					return i, nil
				},
			}
			nudger := &fakeNudger{}

			h := handlers.NewIssuesHandler(repo, &fakeSaver{path: "uploads/abc.jpg"}, nudger, testLogger(), nil)
			r := setupRouter(http.MethodPost, "/api/issues", []gin.HandlerFunc{asUser(reporter)}, h.CreateIssue)

			body, contentType := multipartBody(t, tt.fields, tt.file)
			req := httptest.NewRequest(http.MethodPost, "/api/issues", body)
			req.Header.Set("Content-Type", contentType)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" {
				if got := errorCode(t, w.Body.Bytes()); got != tt.wantCode {
					t.Fatalf("got error code %q, want %q", got, tt.wantCode)
				}
				if gotJob != nil {
					t.Fatal("no job should be enqueued on a rejected request")
				}
				return
			}

			if gotIssue.Status != issue.StatusOpen {
				t.Fatalf("new issue status = %q, want Open", gotIssue.Status)
			}
			if gotIssue.CreatedBy != reporter.ID {
				t.Fatalf("new issue createdBy = %q, want %q", gotIssue.CreatedBy, reporter.ID)
			}
			if tt.wantImage != (gotIssue.ImagePath != nil) {
				t.Fatalf("imagePath presence = %v, want %v", gotIssue.ImagePath != nil, tt.wantImage)
			}

			if gotJob == nil {
				t.Fatal("expected a notification job to be enqueued")
			}
			if gotJob.Type != jobs.TypeIssueReceived {
				t.Fatalf("job type = %q, want %q", gotJob.Type, jobs.TypeIssueReceived)
			}

			var payload jobs.IssueReceivedPayload
			if err := json.Unmarshal(gotJob.Payload, &payload); err != nil {
				t.Fatalf("decode job payload: %v", err)
			}
			if payload.Email != reporter.Email {
				t.Fatalf("payload email = %q, want reporter's", payload.Email)
			}

			if nudger.calls != 1 {
				t.Fatalf("nudge calls = %d, want 1", nudger.calls)
			}
		})
	}
}

func TestListMineHandler(t *testing.T) {
	mine := []issue.Issue{
		{ID: "i2", Title: "Wifi down", CreatedBy: reporter.ID, Status: issue.StatusOpen},
		{ID: "i1", Title: "Broken light", CreatedBy: reporter.ID, Status: issue.StatusResolved},
	}

	repo := &fakeIssuesRepo{
		listByCreator: func(ctx context.Context, userID string) ([]issue.Issue, error) {
			if userID != reporter.ID {
				t.Fatalf("listed for %q, want %q", userID, reporter.ID)
			}
			return mine, nil
		},
	}

	h := handlers.NewIssuesHandler(repo, &fakeSaver{}, nil, testLogger(), nil)
	r := setupRouter(http.MethodGet, "/api/issues/my", []gin.HandlerFunc{asUser(reporter)}, h.ListMine)

	req := httptest.NewRequest(http.MethodGet, "/api/issues/my", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var out struct {
		Items []issue.Issue `json:"items"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if out.Count != 2 || len(out.Items) != 2 {
		t.Fatalf("got %d items (count=%d), want 2", len(out.Items), out.Count)
	}
}

func TestListAllHandler(t *testing.T) {
	all := []issue.Issue{
		{
			ID: "i1", Title: "Wifi down", CreatedBy: reporter.ID, Status: issue.StatusOpen,
			Creator: &issue.Creator{ID: reporter.ID, Name: reporter.Name, Email: reporter.Email},
		},
	}

	repo := &fakeIssuesRepo{
		listAllFn: func(ctx context.Context) ([]issue.Issue, error) {
			return all, nil
		},
	}

	admin := user.User{ID: "adm-1", Email: "admin@campus.edu", Role: user.RoleAdmin}

	h := handlers.NewIssuesHandler(repo, &fakeSaver{}, nil, testLogger(), nil)
	r := setupRouter(http.MethodGet, "/api/issues", []gin.HandlerFunc{asUser(admin)}, h.ListAll)

	req := httptest.NewRequest(http.MethodGet, "/api/issues", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var out struct {
		Items []issue.Issue `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Creator == nil {
		t.Fatalf("admin listing should include the reporter, got %+v", out.Items)
	}
	if out.Items[0].Creator.Email != reporter.Email {
		t.Fatalf("creator email = %q, want %q", out.Items[0].Creator.Email, reporter.Email)
	}
}

func TestUpdateStatusHandler(t *testing.T) {
	stored := issue.Issue{
		ID:        "i1",
		Title:     "Tap leaking in block C",
		Category:  issue.CategoryWater,
		Status:    issue.StatusOpen,
		CreatedBy: reporter.ID,
		Creator:   &issue.Creator{ID: reporter.ID, Name: reporter.Name, Email: reporter.Email},
	}

	admin := user.User{ID: "adm-1", Email: "admin@campus.edu", Role: user.RoleAdmin}

	tests := []struct {
		name       string
		id         string
		body       string
		current    issue.Status
		wantStatus int
		wantCode   string
		wantNext   issue.Status
	}{
		{
			name:       "open_to_in_progress",
			id:         "i1",
			body:       `{"status":"In Progress"}`,
			current:    issue.StatusOpen,
			wantStatus: http.StatusOK,
			wantNext:   issue.StatusInProgress,
		},
		{
			name:       "open_straight_to_resolved",
			id:         "i1",
			body:       `{"status":"Resolved","remarks":"replaced the washer"}`,
			current:    issue.StatusOpen,
			wantStatus: http.StatusOK,
			wantNext:   issue.StatusResolved,
		},
		{
			name:       "resolved_is_terminal",
			id:         "i1",
			body:       `{"status":"Open"}`,
			current:    issue.StatusResolved,
			wantStatus: http.StatusConflict,
			wantCode:   "invalid_transition",
		},
		{
			name:       "backwards_from_in_progress",
			id:         "i1",
			body:       `{"status":"Open"}`,
			current:    issue.StatusInProgress,
			wantStatus: http.StatusConflict,
			wantCode:   "invalid_transition",
		},
		{
			name:       "unknown_status_rejected_by_binding",
			id:         "i1",
			body:       `{"status":"Closed"}`,
			current:    issue.StatusOpen,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "missing_issue",
			id:         "ghost",
			body:       `{"status":"Resolved"}`,
			current:    issue.StatusOpen,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var gotJob *job.CreateRequest

			repo := &fakeIssuesRepo{
				getFn: func(ctx context.Context, id string) (issue.Issue, error) {
					if id != stored.ID {
						return issue.Issue{}, issue.ErrNotFound
					}
					i := stored
					i.Status = tt.current
					return i, nil
				},
				updateStatusFn: func(ctx context.Context, id string, status issue.Status, remarks *string, jobReq *job.CreateRequest) (issue.Issue, error) {
					gotJob = jobReq
					i := stored
					i.Status = status
					if remarks != nil {
						i.Remarks = remarks
					}
					return i, nil
				},
			}
			nudger := &fakeNudger{}

			h := handlers.NewIssuesHandler(repo, &fakeSaver{}, nudger, testLogger(), nil)
			r := setupRouter(http.MethodPatch, "/api/issues/:id", []gin.HandlerFunc{asUser(admin)}, h.UpdateStatus)

			req := httptest.NewRequest(http.MethodPatch, "/api/issues/"+tt.id, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" {
				if got := errorCode(t, w.Body.Bytes()); got != tt.wantCode {
					t.Fatalf("got error code %q, want %q", got, tt.wantCode)
				}
				if gotJob != nil {
					t.Fatal("no job should be enqueued on a rejected transition")
				}
				if nudger.calls != 0 {
					t.Fatal("no nudge expected on a rejected transition")
				}
				return
			}

			var out issue.Issue
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if out.Status != tt.wantNext {
				t.Fatalf("updated status = %q, want %q", out.Status, tt.wantNext)
			}

			if gotJob == nil {
				t.Fatal("expected a status-change job to be enqueued")
			}
			if gotJob.Type != jobs.TypeIssueStatusChanged {
				t.Fatalf("job type = %q, want %q", gotJob.Type, jobs.TypeIssueStatusChanged)
			}

			var payload jobs.IssueStatusChangedPayload
			if err := json.Unmarshal(gotJob.Payload, &payload); err != nil {
				t.Fatalf("decode job payload: %v", err)
			}
			if payload.Email != reporter.Email {
				t.Fatalf("payload email = %q, want the reporter's", payload.Email)
			}
			if payload.Status != string(tt.wantNext) {
				t.Fatalf("payload status = %q, want %q", payload.Status, tt.wantNext)
			}

			if nudger.calls != 1 {
				t.Fatalf("nudge calls = %d, want 1", nudger.calls)
			}
		})
	}
}
