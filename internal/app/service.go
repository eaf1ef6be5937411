package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"loomboard/api/internal/ai"
	"loomboard/api/internal/auth"
	"loomboard/api/internal/authpw"
	"loomboard/api/internal/config"
	"loomboard/api/internal/diagram"
	"loomboard/api/internal/export"
	"loomboard/api/internal/gitrepo"
	"loomboard/api/internal/rbac"
	"loomboard/api/internal/search"
	"loomboard/api/internal/store"
	"loomboard/api/internal/util"
)

// Session is the authenticated caller attached to a request.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// DocumentContent is the editable payload of a document: metadata plus the
// rich-text body and the diagram canvas, both stored as raw JSON.
type DocumentContent struct {
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Doc      json.RawMessage `json:"doc,omitempty"`
	Canvas   json.RawMessage `json:"canvas,omitempty"`
}

type dataStore interface {
	InsertUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	VerifyEmailToken(context.Context, string) error
	SaveRefreshSession(context.Context, string, string, time.Time) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	GetDefaultWorkspace(context.Context) (store.Workspace, error)
	ListSpaces(context.Context, string) ([]store.Space, error)
	GetSpace(context.Context, string) (store.Space, error)
	InsertSpace(context.Context, store.Space) error
	UpdateSpace(context.Context, string, string, string) error
	DeleteSpace(context.Context, string) error
	SpaceDocumentCount(context.Context, string) (int, error)
	ListDocuments(context.Context, string) ([]store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document) error
	UpdateDocumentMeta(context.Context, string, string, string, string) error
	UpdateDocumentSearchText(context.Context, string, string) error
	DeleteDocument(context.Context, string) error
	MoveDocument(context.Context, string, string) error
	ListTasks(context.Context, string) ([]store.Task, error)
	GetTask(context.Context, string) (store.Task, error)
	InsertTask(context.Context, store.Task) error
	UpdateTask(context.Context, string, string, string) error
	DeleteTask(context.Context, string) error
	Ping(context.Context) error
}

type gitService interface {
	EnsureDocumentRepo(string, gitrepo.Content, string) error
	CommitContent(string, gitrepo.Content, string, string) (store.CommitInfo, error)
	GetHeadContent(string) (gitrepo.Content, store.CommitInfo, error)
	GetContentByHash(string, string) (gitrepo.Content, error)
	History(string, int) ([]store.CommitInfo, error)
}

// sessionStore holds refresh sessions. Postgres is the default backing;
// Redis is used when configured so refresh does not touch the database.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexDocument(doc search.DocumentRecord)
	IndexTask(task search.TaskRecord)
	DeleteDocument(id string)
	DeleteTask(id string)
}

type diagramAgent interface {
	Generate(ctx context.Context, req ai.Request) (*ai.Result, error)
}

// pgSessionStore adapts the relational store to the sessionStore surface.
// Lookup resolves the user through the refresh_sessions join, so only the
// token hash and owner need to be written.
type pgSessionStore struct {
	store interface {
		SaveRefreshSession(context.Context, string, string, time.Time) error
		LookupRefreshSession(context.Context, string) (store.User, error)
		RevokeRefreshSession(context.Context, string) error
	}
}

func (p *pgSessionStore) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return p.store.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (p *pgSessionStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	return p.store.LookupRefreshSession(ctx, tokenHash)
}

func (p *pgSessionStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return p.store.RevokeRefreshSession(ctx, tokenHash)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	git      gitService
	search   searchService
	agent    diagramAgent
	accounts *authpw.Service
	exporter *export.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, gitService *gitrepo.Service, searchService *search.Service, agent *ai.Agent) *Service {
	return newService(cfg, dataStore, &pgSessionStore{store: dataStore}, gitService, searchService, agent)
}

// NewWithSessionStore is New with refresh sessions held in an external
// session store (Redis) instead of Postgres.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, gitService *gitrepo.Service, searchService *search.Service, agent *ai.Agent) *Service {
	return newService(cfg, dataStore, sessions, gitService, searchService, agent)
}

func newService(cfg config.Config, st dataStore, sessions sessionStore, git gitService, searchService searchService, agent diagramAgent) *Service {
	svc := &Service{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		git:      git,
		search:   searchService,
		agent:    agent,
		accounts: authpw.NewService(st),
	}
	svc.exporter = export.NewService(&exportStore{store: st, git: git})
	return svc
}

// Bootstrap seeds an empty workspace with a default space and a welcome
// document so a fresh install is not a blank screen.
func (s *Service) Bootstrap(ctx context.Context) error {
	ws, err := s.store.GetDefaultWorkspace(ctx)
	if err != nil {
		return err
	}
	spaces, err := s.store.ListSpaces(ctx, ws.ID)
	if err != nil {
		return err
	}
	if len(spaces) > 0 {
		return nil
	}

	space := store.Space{
		ID:          util.NewID("sp"),
		WorkspaceID: ws.ID,
		Name:        "General",
		Slug:        "general",
		Description: "Default space",
	}
	if err := s.store.InsertSpace(ctx, space); err != nil {
		return err
	}

	doc := store.Document{
		ID:        util.NewID("doc"),
		SpaceID:   space.ID,
		Title:     "Welcome to Loomboard",
		Subtitle:  "Documents, tasks, and diagrams in one place",
		UpdatedBy: "Loomboard",
	}
	content := gitrepo.Content{
		Title:    doc.Title,
		Subtitle: doc.Subtitle,
		Doc:      json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Open the canvas and ask the assistant to draw your first architecture diagram."}]}]}`),
		Canvas:   json.RawMessage(`{"objects":[],"connections":[]}`),
	}
	if err := s.git.EnsureDocumentRepo(doc.ID, content, doc.UpdatedBy); err != nil {
		return err
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return err
	}
	s.search.IndexDocument(search.DocumentRecord{
		ID:       doc.ID,
		Title:    doc.Title,
		Subtitle: doc.Subtitle,
		Body:     flattenContent(content),
		SpaceID:  doc.SpaceID,
	})
	return nil
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (map[string]any, error) {
	resp, err := s.accounts.SignUp(ctx, authpw.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			return nil, domainError(http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists", nil)
		}
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return map[string]any{
		"userId":            resp.UserID,
		"verificationToken": resp.VerificationToken,
	}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.accounts.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, authpw.ErrEmailNotVerified) {
			return Session{}, domainError(http.StatusForbidden, "EMAIL_NOT_VERIFIED", "verify your email before signing in", nil)
		}
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if err := s.accounts.VerifyEmail(ctx, token); err != nil {
		return domainError(http.StatusUnprocessableEntity, "INVALID_TOKEN", "verification token is invalid", nil)
	}
	return nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetWorkspace returns the workspace with its spaces and their document
// counts.
func (s *Service) GetWorkspace(ctx context.Context) (map[string]any, error) {
	ws, err := s.store.GetDefaultWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	spaces, err := s.store.ListSpaces(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(spaces))
	for _, space := range spaces {
		docCount, err := s.store.SpaceDocumentCount(ctx, space.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, mapSpace(space, docCount))
	}
	return map[string]any{
		"id":     ws.ID,
		"name":   ws.Name,
		"slug":   ws.Slug,
		"spaces": items,
	}, nil
}

func (s *Service) GetSpace(ctx context.Context, spaceID string) (map[string]any, error) {
	space, err := s.store.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	docCount, err := s.store.SpaceDocumentCount(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return mapSpace(space, docCount), nil
}

func (s *Service) CreateSpace(ctx context.Context, name, description string) (map[string]any, error) {
	spaceName := strings.TrimSpace(name)
	if spaceName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	ws, err := s.store.GetDefaultWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	slug := strings.ToLower(strings.ReplaceAll(spaceName, " ", "-"))
	space := store.Space{
		ID:          util.NewID("sp"),
		WorkspaceID: ws.ID,
		Name:        spaceName,
		Slug:        slug,
		Description: strings.TrimSpace(description),
	}
	if err := s.store.InsertSpace(ctx, space); err != nil {
		return nil, err
	}
	return mapSpace(space, 0), nil
}

func (s *Service) UpdateSpace(ctx context.Context, spaceID, name, description string) (map[string]any, error) {
	spaceName := strings.TrimSpace(name)
	if spaceName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if err := s.store.UpdateSpace(ctx, spaceID, spaceName, strings.TrimSpace(description)); err != nil {
		return nil, err
	}
	return s.GetSpace(ctx, spaceID)
}

// DeleteSpace refuses to delete a space that still holds documents.
func (s *Service) DeleteSpace(ctx context.Context, spaceID string) error {
	docCount, err := s.store.SpaceDocumentCount(ctx, spaceID)
	if err != nil {
		return err
	}
	if docCount > 0 {
		return domainError(http.StatusConflict, "SPACE_NOT_EMPTY", "move or delete the space's documents first", map[string]any{"documentCount": docCount})
	}
	return s.store.DeleteSpace(ctx, spaceID)
}

// ListDocuments lists document metadata, optionally scoped to a space.
func (s *Service) ListDocuments(ctx context.Context, spaceID string) ([]map[string]any, error) {
	documents, err := s.store.ListDocuments(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(documents))
	for _, doc := range documents {
		items = append(items, mapDocument(doc))
	}
	return items, nil
}

func (s *Service) CreateDocument(ctx context.Context, spaceID, title, subtitle, userName string) (map[string]any, error) {
	docTitle := strings.TrimSpace(title)
	if docTitle == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if _, err := s.store.GetSpace(ctx, spaceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "space not found", nil)
		}
		return nil, err
	}

	doc := store.Document{
		ID:        util.NewID("doc"),
		SpaceID:   spaceID,
		Title:     docTitle,
		Subtitle:  strings.TrimSpace(subtitle),
		UpdatedBy: userName,
	}
	content := gitrepo.Content{
		Title:    doc.Title,
		Subtitle: doc.Subtitle,
		Doc:      json.RawMessage(`{"type":"doc","content":[]}`),
		Canvas:   json.RawMessage(`{"objects":[],"connections":[]}`),
	}
	if err := s.git.EnsureDocumentRepo(doc.ID, content, userName); err != nil {
		return nil, err
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	s.search.IndexDocument(search.DocumentRecord{
		ID:       doc.ID,
		Title:    doc.Title,
		Subtitle: doc.Subtitle,
		Body:     flattenContent(content),
		SpaceID:  doc.SpaceID,
	})
	return mapDocument(doc), nil
}

// GetDocument returns metadata plus the head content and commit.
func (s *Service) GetDocument(ctx context.Context, documentID string) (map[string]any, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	content, commit, err := s.git.GetHeadContent(documentID)
	if err != nil {
		return nil, err
	}
	payload := mapDocument(doc)
	payload["doc"] = rawOrNull(content.Doc)
	payload["canvas"] = rawOrNull(content.Canvas)
	payload["head"] = mapCommit(commit)
	return payload, nil
}

// SaveContent commits a new revision when the content actually changed,
// then refreshes metadata and the search index. A formatting-only save is
// a no-op commit-wise but still returns the current head.
func (s *Service) SaveContent(ctx context.Context, documentID string, content DocumentContent, userName string) (map[string]any, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	next := gitrepo.Content{
		Title:    strings.TrimSpace(content.Title),
		Subtitle: strings.TrimSpace(content.Subtitle),
		Doc:      content.Doc,
		Canvas:   content.Canvas,
	}
	if next.Title == "" {
		next.Title = doc.Title
	}

	head, commit, err := s.git.GetHeadContent(documentID)
	if err != nil {
		return nil, err
	}
	if gitrepo.HasChanges(head, next) {
		commit, err = s.git.CommitContent(documentID, next, userName, "Update "+next.Title)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateDocumentMeta(ctx, documentID, next.Title, next.Subtitle, userName); err != nil {
		return nil, err
	}
	searchText := flattenContent(next)
	if err := s.store.UpdateDocumentSearchText(ctx, documentID, searchText); err != nil {
		return nil, err
	}
	s.search.IndexDocument(search.DocumentRecord{
		ID:       documentID,
		Title:    next.Title,
		Subtitle: next.Subtitle,
		Body:     searchText,
		SpaceID:  doc.SpaceID,
	})

	return map[string]any{
		"id":        documentID,
		"title":     next.Title,
		"subtitle":  next.Subtitle,
		"updatedBy": userName,
		"commit":    mapCommit(commit),
	}, nil
}

func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	tasks, err := s.store.ListTasks(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	s.search.DeleteDocument(documentID)
	for _, task := range tasks {
		s.search.DeleteTask(task.ID)
	}
	return nil
}

func (s *Service) MoveDocument(ctx context.Context, documentID, newSpaceID string) (map[string]any, error) {
	if strings.TrimSpace(newSpaceID) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "spaceId is required", nil)
	}
	if _, err := s.store.GetSpace(ctx, newSpaceID); err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "space not found", nil)
	}
	if err := s.store.MoveDocument(ctx, documentID, newSpaceID); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true, "documentId": documentID, "spaceId": newSpaceID}, nil
}

func (s *Service) History(ctx context.Context, documentID string, limit int) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	commits, err := s.git.History(documentID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(commits))
	for _, commit := range commits {
		items = append(items, mapCommit(commit))
	}
	return map[string]any{"documentId": documentID, "commits": items}, nil
}

// ContentAt returns the document content at a specific commit.
func (s *Service) ContentAt(ctx context.Context, documentID, hash string) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	content, err := s.git.GetContentByHash(documentID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "revision not found", nil)
	}
	return map[string]any{
		"documentId": documentID,
		"hash":       hash,
		"title":      content.Title,
		"subtitle":   content.Subtitle,
		"doc":        rawOrNull(content.Doc),
		"canvas":     rawOrNull(content.Canvas),
	}, nil
}

func (s *Service) ListTasks(ctx context.Context, documentID string) ([]map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, mapTask(task))
	}
	return items, nil
}

func (s *Service) CreateTask(ctx context.Context, documentID, title, userName string) (map[string]any, error) {
	taskTitle := strings.TrimSpace(title)
	if taskTitle == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	task := store.Task{
		ID:         util.NewID("task"),
		DocumentID: documentID,
		Title:      taskTitle,
		Status:     "OPEN",
		CreatedBy:  userName,
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}
	s.search.IndexTask(search.TaskRecord{
		ID:         task.ID,
		Title:      task.Title,
		Status:     task.Status,
		DocumentID: documentID,
		SpaceID:    doc.SpaceID,
	})
	return mapTask(task), nil
}

func (s *Service) UpdateTask(ctx context.Context, taskID, title, status string) (map[string]any, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title == "" {
		title = task.Title
	}
	if status == "" {
		status = task.Status
	}
	if status != "OPEN" && status != "DONE" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be OPEN or DONE", nil)
	}
	if err := s.store.UpdateTask(ctx, taskID, title, status); err != nil {
		return nil, err
	}
	task.Title = title
	task.Status = status

	doc, err := s.store.GetDocument(ctx, task.DocumentID)
	if err == nil {
		s.search.IndexTask(search.TaskRecord{
			ID:         task.ID,
			Title:      task.Title,
			Status:     task.Status,
			DocumentID: task.DocumentID,
			SpaceID:    doc.SpaceID,
		})
	}
	return mapTask(task), nil
}

func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.search.DeleteTask(taskID)
	return nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	return s.search.Search(q)
}

// ExportDocument renders a document to SVG or PDF.
func (s *Service) ExportDocument(ctx context.Context, documentID, version string, format export.Format) (*export.Result, error) {
	if version == "" {
		version = "latest"
	}
	result, err := s.exporter.Export(ctx, export.Request{
		DocumentID: documentID,
		Version:    version,
		Format:     format,
	})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusNotImplemented, "PDF_UNAVAILABLE", "PDF export requires a Chromium install", nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if errors.Is(err, export.ErrContentUnavailable) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "document content not found", nil)
		}
		return nil, err
	}
	return result, nil
}

// AIConfigured reports whether a provider API key is set.
func (s *Service) AIConfigured() bool {
	return s.cfg.OpenAIAPIKey != ""
}

// GenerateDiagram runs one diagram-generation turn against the agent.
func (s *Service) GenerateDiagram(ctx context.Context, prompt string, history []ai.Message, canvas *diagram.Document) (*ai.Result, error) {
	return s.agent.Generate(ctx, ai.Request{
		Prompt:  prompt,
		History: history,
		Canvas:  canvas,
	})
}

// exportStore adapts the service's store and git layers to the export
// package's data surface.
type exportStore struct {
	store dataStore
	git   gitService
}

func (e *exportStore) GetDocument(ctx context.Context, id string) (export.DocumentInfo, error) {
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		return export.DocumentInfo{}, err
	}
	return export.DocumentInfo{
		ID:        doc.ID,
		Title:     doc.Title,
		Subtitle:  doc.Subtitle,
		SpaceID:   doc.SpaceID,
		UpdatedBy: doc.UpdatedBy,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (e *exportStore) GetSpace(ctx context.Context, id string) (export.SpaceInfo, error) {
	space, err := e.store.GetSpace(ctx, id)
	if err != nil {
		return export.SpaceInfo{}, err
	}
	return export.SpaceInfo{ID: space.ID, Name: space.Name}, nil
}

func (e *exportStore) GetDocumentCanvas(ctx context.Context, documentID, version string) (*diagram.Document, error) {
	var content gitrepo.Content
	var err error
	if version == "" || version == "latest" {
		content, _, err = e.git.GetHeadContent(documentID)
	} else {
		content, err = e.git.GetContentByHash(documentID, version)
	}
	if err != nil {
		return nil, err
	}
	if len(content.Canvas) == 0 {
		return &diagram.Document{Objects: []diagram.CanvasObject{}, Connections: []diagram.Connection{}}, nil
	}
	var canvas diagram.Document
	if err := json.Unmarshal(content.Canvas, &canvas); err != nil {
		return nil, fmt.Errorf("decode canvas: %w", err)
	}
	if canvas.Objects == nil {
		canvas.Objects = []diagram.CanvasObject{}
	}
	if canvas.Connections == nil {
		canvas.Connections = []diagram.Connection{}
	}
	return &canvas, nil
}

func mapSpace(space store.Space, docCount int) map[string]any {
	return map[string]any{
		"id":            space.ID,
		"workspaceId":   space.WorkspaceID,
		"name":          space.Name,
		"slug":          space.Slug,
		"description":   space.Description,
		"documentCount": docCount,
	}
}

func mapDocument(doc store.Document) map[string]any {
	return map[string]any{
		"id":        doc.ID,
		"spaceId":   doc.SpaceID,
		"title":     doc.Title,
		"subtitle":  doc.Subtitle,
		"updatedBy": doc.UpdatedBy,
		"updatedAt": doc.UpdatedAt,
	}
}

func mapCommit(commit store.CommitInfo) map[string]any {
	return map[string]any{
		"hash":      commit.Hash,
		"message":   commit.Message,
		"author":    commit.Author,
		"createdAt": commit.CreatedAt,
	}
}

func mapTask(task store.Task) map[string]any {
	return map[string]any{
		"id":         task.ID,
		"documentId": task.DocumentID,
		"title":      task.Title,
		"status":     task.Status,
		"createdBy":  task.CreatedBy,
	}
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// flattenContent extracts the searchable text of a document: every "text"
// string in the rich-text body plus every node label on the canvas.
func flattenContent(content gitrepo.Content) string {
	var parts []string
	collectText(decodeAny(content.Doc), &parts)
	collectText(decodeAny(content.Canvas), &parts)
	return strings.Join(parts, " ")
}

func decodeAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

func collectText(value any, out *[]string) {
	switch v := value.(type) {
	case map[string]any:
		if text, ok := v["text"].(string); ok && strings.TrimSpace(text) != "" {
			*out = append(*out, text)
		}
		for key, child := range v {
			if key == "text" {
				continue
			}
			collectText(child, out)
		}
	case []any:
		for _, child := range v {
			collectText(child, out)
		}
	}
}
