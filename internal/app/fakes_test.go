package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"loomboard/api/internal/ai"
	"loomboard/api/internal/gitrepo"
	"loomboard/api/internal/search"
	"loomboard/api/internal/store"
)

type fakeStore struct {
	getUserByEmailFn       func(context.Context, string) (store.User, error)
	getUserByIDFn          func(context.Context, string) (store.User, error)
	insertUserFn           func(context.Context, store.User) error
	verifyEmailTokenFn     func(context.Context, string) error
	isAccessRevokedFn      func(context.Context, string) (bool, error)
	getSpaceFn             func(context.Context, string) (store.Space, error)
	insertSpaceFn          func(context.Context, store.Space) error
	spaceDocumentCountFn   func(context.Context, string) (int, error)
	listDocumentsFn        func(context.Context, string) ([]store.Document, error)
	getDocumentFn          func(context.Context, string) (store.Document, error)
	insertDocumentFn       func(context.Context, store.Document) error
	updateDocumentMetaFn   func(context.Context, string, string, string, string) error
	updateSearchTextFn     func(context.Context, string, string) error
	listTasksFn            func(context.Context, string) ([]store.Task, error)
	getTaskFn              func(context.Context, string) (store.Task, error)
	insertTaskFn           func(context.Context, store.Task) error
	updateTaskFn           func(context.Context, string, string, string) error
	listSpacesFn           func(context.Context, string) ([]store.Space, error)
	deleteSpaceFn          func(context.Context, string) error
	deleteDocumentFn       func(context.Context, string) error
	revokedAccess          map[string]bool
}

func (f *fakeStore) InsertUser(ctx context.Context, user store.User) error {
	if f.insertUserFn != nil {
		return f.insertUserFn(ctx, user)
	}
	return nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{ID: userID, DisplayName: "Avery", Role: "editor", EmailVerified: true}, nil
}

func (f *fakeStore) VerifyEmailToken(ctx context.Context, token string) error {
	if f.verifyEmailTokenFn != nil {
		return f.verifyEmailTokenFn(ctx, token)
	}
	return nil
}

func (f *fakeStore) SaveRefreshSession(context.Context, string, string, time.Time) error { return nil }
func (f *fakeStore) RevokeAccessToken(ctx context.Context, jti string, _ time.Time) error {
	if f.revokedAccess == nil {
		f.revokedAccess = map[string]bool{}
	}
	f.revokedAccess[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.isAccessRevokedFn != nil {
		return f.isAccessRevokedFn(ctx, jti)
	}
	return f.revokedAccess[jti], nil
}

func (f *fakeStore) GetDefaultWorkspace(context.Context) (store.Workspace, error) {
	return store.Workspace{ID: "ws_default", Name: "Loomboard", Slug: "loomboard"}, nil
}

func (f *fakeStore) ListSpaces(ctx context.Context, workspaceID string) ([]store.Space, error) {
	if f.listSpacesFn != nil {
		return f.listSpacesFn(ctx, workspaceID)
	}
	return nil, nil
}

func (f *fakeStore) GetSpace(ctx context.Context, spaceID string) (store.Space, error) {
	if f.getSpaceFn != nil {
		return f.getSpaceFn(ctx, spaceID)
	}
	return store.Space{ID: spaceID, WorkspaceID: "ws_default", Name: "General", Slug: "general"}, nil
}

func (f *fakeStore) InsertSpace(ctx context.Context, space store.Space) error {
	if f.insertSpaceFn != nil {
		return f.insertSpaceFn(ctx, space)
	}
	return nil
}

func (f *fakeStore) UpdateSpace(context.Context, string, string, string) error { return nil }
func (f *fakeStore) DeleteSpace(ctx context.Context, spaceID string) error {
	if f.deleteSpaceFn != nil {
		return f.deleteSpaceFn(ctx, spaceID)
	}
	return nil
}

func (f *fakeStore) SpaceDocumentCount(ctx context.Context, spaceID string) (int, error) {
	if f.spaceDocumentCountFn != nil {
		return f.spaceDocumentCountFn(ctx, spaceID)
	}
	return 0, nil
}

func (f *fakeStore) ListDocuments(ctx context.Context, spaceID string) ([]store.Document, error) {
	if f.listDocumentsFn != nil {
		return f.listDocumentsFn(ctx, spaceID)
	}
	return nil, nil
}

func (f *fakeStore) GetDocument(ctx context.Context, documentID string) (store.Document, error) {
	if f.getDocumentFn != nil {
		return f.getDocumentFn(ctx, documentID)
	}
	return store.Document{ID: documentID, SpaceID: "sp_1", Title: "Doc", UpdatedBy: "Avery"}, nil
}

func (f *fakeStore) InsertDocument(ctx context.Context, doc store.Document) error {
	if f.insertDocumentFn != nil {
		return f.insertDocumentFn(ctx, doc)
	}
	return nil
}

func (f *fakeStore) UpdateDocumentMeta(ctx context.Context, documentID, title, subtitle, updatedBy string) error {
	if f.updateDocumentMetaFn != nil {
		return f.updateDocumentMetaFn(ctx, documentID, title, subtitle, updatedBy)
	}
	return nil
}

func (f *fakeStore) UpdateDocumentSearchText(ctx context.Context, documentID, searchText string) error {
	if f.updateSearchTextFn != nil {
		return f.updateSearchTextFn(ctx, documentID, searchText)
	}
	return nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, documentID string) error {
	if f.deleteDocumentFn != nil {
		return f.deleteDocumentFn(ctx, documentID)
	}
	return nil
}

func (f *fakeStore) MoveDocument(context.Context, string, string) error { return nil }

func (f *fakeStore) ListTasks(ctx context.Context, documentID string) ([]store.Task, error) {
	if f.listTasksFn != nil {
		return f.listTasksFn(ctx, documentID)
	}
	return nil, nil
}

func (f *fakeStore) GetTask(ctx context.Context, taskID string) (store.Task, error) {
	if f.getTaskFn != nil {
		return f.getTaskFn(ctx, taskID)
	}
	return store.Task{ID: taskID, DocumentID: "doc_1", Title: "Task", Status: "OPEN"}, nil
}

func (f *fakeStore) InsertTask(ctx context.Context, task store.Task) error {
	if f.insertTaskFn != nil {
		return f.insertTaskFn(ctx, task)
	}
	return nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, taskID, title, status string) error {
	if f.updateTaskFn != nil {
		return f.updateTaskFn(ctx, taskID, title, status)
	}
	return nil
}

func (f *fakeStore) DeleteTask(context.Context, string) error { return nil }
func (f *fakeStore) Ping(context.Context) error               { return nil }

type fakeGit struct {
	headContentFn   func(string) (gitrepo.Content, store.CommitInfo, error)
	commitContentFn func(string, gitrepo.Content, string, string) (store.CommitInfo, error)
	historyFn       func(string, int) ([]store.CommitInfo, error)
	contentByHashFn func(string, string) (gitrepo.Content, error)
	ensured         []string
}

func (f *fakeGit) EnsureDocumentRepo(documentID string, _ gitrepo.Content, _ string) error {
	f.ensured = append(f.ensured, documentID)
	return nil
}

func (f *fakeGit) CommitContent(documentID string, content gitrepo.Content, author, message string) (store.CommitInfo, error) {
	if f.commitContentFn != nil {
		return f.commitContentFn(documentID, content, author, message)
	}
	return store.CommitInfo{Hash: "abc1234", Message: message, Author: author, CreatedAt: time.Now()}, nil
}

func (f *fakeGit) GetHeadContent(documentID string) (gitrepo.Content, store.CommitInfo, error) {
	if f.headContentFn != nil {
		return f.headContentFn(documentID)
	}
	return gitrepo.Content{Title: "Doc"}, store.CommitInfo{Hash: "head123"}, nil
}

func (f *fakeGit) GetContentByHash(documentID, hash string) (gitrepo.Content, error) {
	if f.contentByHashFn != nil {
		return f.contentByHashFn(documentID, hash)
	}
	return gitrepo.Content{}, errors.New("not found")
}

func (f *fakeGit) History(documentID string, limit int) ([]store.CommitInfo, error) {
	if f.historyFn != nil {
		return f.historyFn(documentID, limit)
	}
	return nil, nil
}

type fakeSearch struct {
	mu      sync.Mutex
	docs    map[string]search.DocumentRecord
	tasks   map[string]search.TaskRecord
	queries []search.Query
}

func newFakeSearch() *fakeSearch {
	return &fakeSearch{docs: map[string]search.DocumentRecord{}, tasks: map[string]search.TaskRecord{}}
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return search.Response{Results: []search.Result{}, Total: 0, Query: q.Text}
}

func (f *fakeSearch) IndexDocument(doc search.DocumentRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
}

func (f *fakeSearch) IndexTask(task search.TaskRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task
}

func (f *fakeSearch) DeleteDocument(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
}

func (f *fakeSearch) DeleteTask(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]store.User
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]store.User{}}
}

func (f *fakeSessions) SaveRefreshSession(_ context.Context, tokenHash string, user store.User, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[tokenHash] = user
	return nil
}

func (f *fakeSessions) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.sessions[tokenHash]
	if !ok {
		return store.User{}, errors.New("session not found")
	}
	return user, nil
}

func (f *fakeSessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

type stubAgent struct {
	generateFn func(context.Context, ai.Request) (*ai.Result, error)
}

func (s *stubAgent) Generate(ctx context.Context, req ai.Request) (*ai.Result, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, req)
	}
	return &ai.Result{Message: "ok"}, nil
}
