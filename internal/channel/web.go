package channel

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kanad/internal/assistant"
	"kanad/internal/attachment"
	"kanad/internal/auth"
	"kanad/internal/bus"
	"kanad/internal/domain"
	"kanad/internal/export"
	"kanad/internal/research"
)

const maxUploadForm = 128 << 20

// Web implements the HTTP + WebSocket gateway. State-changing endpoints
// act on the orchestrator; /ws streams live session updates.
type Web struct {
	host    string
	port    int
	orch    *assistant.Orchestrator
	updates *bus.InMemoryBus
	papers  *research.Client
	users   *auth.Service
	logger  *slog.Logger
	server  *http.Server
	version string

	authEnabled bool
	authUser    string
	authPass    string
	maxFileSize int64

	mu      sync.RWMutex
	clients map[*websocket.Conn]domain.Workspace
}

// WebConfig wires the gateway's collaborators.
type WebConfig struct {
	Host         string
	Port         int
	Orchestrator *assistant.Orchestrator
	Updates      *bus.InMemoryBus
	Papers       *research.Client
	Users        *auth.Service
	Logger       *slog.Logger
	Version      string

	AuthEnabled   bool
	AuthUsername  string
	AuthPassword  string
	MaxFileSizeMB int
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewWeb(cfg WebConfig) *Web {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8844
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Web{
		host:        cfg.Host,
		port:        cfg.Port,
		orch:        cfg.Orchestrator,
		updates:     cfg.Updates,
		papers:      cfg.Papers,
		users:       cfg.Users,
		logger:      logger,
		version:     cfg.Version,
		authEnabled: cfg.AuthEnabled,
		authUser:    cfg.AuthUsername,
		authPass:    cfg.AuthPassword,
		maxFileSize: int64(cfg.MaxFileSizeMB) << 20,
		clients:     make(map[*websocket.Conn]domain.Workspace),
	}
}

func (w *Web) Name() string { return "web" }

func (w *Web) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", w.handleStatus) // public endpoint
	mux.HandleFunc("GET /ws", w.requireAuth(w.handleWS))

	mux.HandleFunc("POST /api/auth/guest", w.requireAuth(w.handleGuest))
	mux.HandleFunc("POST /api/auth/signout", w.requireAuth(w.handleSignOut))

	mux.HandleFunc("GET /api/session/{workspace}", w.requireAuth(w.handleSession))
	mux.HandleFunc("POST /api/generate", w.requireAuth(w.handleGenerate))
	mux.HandleFunc("POST /api/followup", w.requireAuth(w.handleFollowUp))
	mux.HandleFunc("POST /api/mindmap", w.requireAuth(w.handleMindMap))
	mux.HandleFunc("POST /api/chat/new", w.requireAuth(w.handleNewChat))

	mux.HandleFunc("GET /api/history", w.requireAuth(w.handleHistory))
	mux.HandleFunc("POST /api/history/{id}/restore", w.requireAuth(w.handleRestore))
	mux.HandleFunc("DELETE /api/history/{id}", w.requireAuth(w.handleDeleteSession))

	mux.HandleFunc("GET /api/workspace/{workspace}/tools", w.requireAuth(w.handleTools))
	mux.HandleFunc("POST /api/workspace/{workspace}/tool", w.requireAuth(w.handleSelectTool))
	mux.HandleFunc("POST /api/workspace/{workspace}/input", w.requireAuth(w.handleSetInput))
	mux.HandleFunc("POST /api/workspace/{workspace}/attachments", w.requireAuth(w.handleUpload))
	mux.HandleFunc("DELETE /api/workspace/{workspace}/attachments/{index}", w.requireAuth(w.handleRemoveAttachment))

	mux.HandleFunc("GET /api/papers/search", w.requireAuth(w.handlePaperSearch))
	mux.HandleFunc("POST /api/papers/analyze", w.requireAuth(w.handlePaperAnalyze))

	mux.HandleFunc("POST /api/export", w.requireAuth(w.handleExport))

	addr := fmt.Sprintf("%s:%d", w.host, w.port)
	w.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	w.logger.Info("web gateway started", "addr", "http://"+addr, "auth", w.authEnabled)

	go func() {
		<-ctx.Done()
		w.closeAllClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.server.Shutdown(shutdownCtx)
	}()

	if err := w.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (w *Web) Stop() error {
	if w.server != nil {
		return w.server.Close()
	}
	return nil
}

// requireAuth wraps a handler with HTTP Basic Auth when auth is enabled.
func (w *Web) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !w.authEnabled {
			next(rw, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !w.checkCredentials(user, pass) {
			rw.Header().Set("WWW-Authenticate", `Basic realm="kanad"`)
			http.Error(rw, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(rw, r)
	}
}

func (w *Web) checkCredentials(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(w.authUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(w.authPass)) == 1
	return userOK && passOK
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]string{"error": msg})
}

func pathWorkspace(r *http.Request) (domain.Workspace, bool) {
	ws := domain.Workspace(r.PathValue("workspace"))
	return ws, ws.Valid()
}

func (w *Web) handleStatus(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": w.version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (w *Web) handleGuest(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, w.users.Guest())
}

func (w *Web) handleSignOut(rw http.ResponseWriter, r *http.Request) {
	w.users.SignOut()
	writeJSON(rw, http.StatusOK, map[string]string{"status": "signed out"})
}

func (w *Web) handleSession(rw http.ResponseWriter, r *http.Request) {
	ws, ok := pathWorkspace(r)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown workspace")
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"workspace":  ws,
		"messages":   w.orch.Session(ws),
		"generating": w.orch.Generating(ws),
	})
}

type workspaceRequest struct {
	Workspace domain.Workspace `json:"workspace"`
	Text      string           `json:"text,omitempty"`
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}

// handleGenerate kicks off a tool invocation. The call returns immediately;
// increments arrive over /ws and the session endpoint.
func (w *Web) handleGenerate(rw http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := decodeBody(r, &req); err != nil || !req.Workspace.Valid() {
		writeError(rw, http.StatusBadRequest, "workspace is required")
		return
	}
	if w.orch.Generating(req.Workspace) {
		writeError(rw, http.StatusConflict, "generation already in progress")
		return
	}
	go func() {
		if err := w.orch.Generate(context.Background(), req.Workspace); err != nil {
			w.logger.Warn("generate failed", "workspace", req.Workspace, "err", err)
		}
	}()
	writeJSON(rw, http.StatusAccepted, map[string]string{"status": "started"})
}

func (w *Web) handleFollowUp(rw http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := decodeBody(r, &req); err != nil || !req.Workspace.Valid() || req.Text == "" {
		writeError(rw, http.StatusBadRequest, "workspace and text are required")
		return
	}
	if w.orch.Generating(req.Workspace) {
		writeError(rw, http.StatusConflict, "generation already in progress")
		return
	}
	go func() {
		if err := w.orch.FollowUp(context.Background(), req.Workspace, req.Text); err != nil {
			w.logger.Warn("follow-up failed", "workspace", req.Workspace, "err", err)
		}
	}()
	writeJSON(rw, http.StatusAccepted, map[string]string{"status": "started"})
}

func (w *Web) handleMindMap(rw http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := decodeBody(r, &req); err != nil || !req.Workspace.Valid() {
		writeError(rw, http.StatusBadRequest, "workspace is required")
		return
	}
	go func() {
		if err := w.orch.MindMap(context.Background(), req.Workspace); err != nil {
			w.logger.Warn("mind map failed", "workspace", req.Workspace, "err", err)
		}
	}()
	writeJSON(rw, http.StatusAccepted, map[string]string{"status": "started"})
}

func (w *Web) handleNewChat(rw http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := decodeBody(r, &req); err != nil || !req.Workspace.Valid() {
		writeError(rw, http.StatusBadRequest, "workspace is required")
		return
	}
	w.orch.NewChat(req.Workspace)
	writeJSON(rw, http.StatusOK, map[string]string{"status": "cleared"})
}

func (w *Web) handleHistory(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, w.orch.History())
}

func (w *Web) handleRestore(rw http.ResponseWriter, r *http.Request) {
	if !w.orch.RestoreSession(r.PathValue("id")) {
		writeError(rw, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"status": "restored"})
}

func (w *Web) handleDeleteSession(rw http.ResponseWriter, r *http.Request) {
	if !w.orch.DeleteSession(r.PathValue("id")) {
		writeError(rw, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"status": "deleted"})
}

func (w *Web) handleTools(rw http.ResponseWriter, r *http.Request) {
	ws, ok := pathWorkspace(r)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown workspace")
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"tools":    assistant.Tools(string(ws)),
		"selected": w.orch.SelectedTool(ws),
	})
}

func (w *Web) handleSelectTool(rw http.ResponseWriter, r *http.Request) {
	ws, ok := pathWorkspace(r)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown workspace")
		return
	}
	var req struct {
		Tool string `json:"tool"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid body")
		return
	}
	if err := w.orch.SelectTool(ws, req.Tool); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"status": "selected", "tool": req.Tool})
}

// handleSetInput decodes the workspace-specific input struct.
func (w *Web) handleSetInput(rw http.ResponseWriter, r *http.Request) {
	ws, ok := pathWorkspace(r)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown workspace")
		return
	}
	var err error
	switch ws {
	case domain.WorkspaceRoadmap:
		var in assistant.RoadmapInput
		if err = decodeBody(r, &in); err == nil {
			w.orch.SetRoadmapInput(in)
		}
	case domain.WorkspaceRnd:
		var in assistant.RndInput
		if err = decodeBody(r, &in); err == nil {
			w.orch.SetRndInput(in)
		}
	case domain.WorkspaceStartup:
		var in assistant.StartupInput
		if err = decodeBody(r, &in); err == nil {
			w.orch.SetStartupInput(in)
		}
	case domain.WorkspacePaper:
		var in assistant.PaperInput
		if err = decodeBody(r, &in); err == nil {
			w.orch.SetPaperInput(in)
		}
	case domain.WorkspaceVisual:
		var in assistant.VisualInput
		if err = decodeBody(r, &in); err == nil {
			w.orch.SetVisualInput(in)
		}
	default:
		writeError(rw, http.StatusBadRequest, "workspace has no input state")
		return
	}
	if err != nil {
		writeError(rw, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"status": "updated"})
}

func (w *Web) handleUpload(rw http.ResponseWriter, r *http.Request) {
	ws, ok := pathWorkspace(r)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown workspace")
		return
	}
	if err := r.ParseMultipartForm(maxUploadForm); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(rw, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	att, err := attachment.Encode(r.Context(), file, header.Header.Get("Content-Type"), header.Filename, w.maxFileSize)
	if errors.Is(err, attachment.ErrTooLarge) {
		writeError(rw, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	if err := w.orch.AddAttachment(ws, att); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"name": att.Name,
		"size": att.Size,
	})
}

func (w *Web) handleRemoveAttachment(rw http.ResponseWriter, r *http.Request) {
	ws, ok := pathWorkspace(r)
	if !ok {
		writeError(rw, http.StatusNotFound, "unknown workspace")
		return
	}
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(rw, http.StatusBadRequest, "index must be an integer")
		return
	}
	w.orch.RemoveAttachment(ws, i)
	writeJSON(rw, http.StatusOK, map[string]string{"status": "removed"})
}

func (w *Web) handlePaperSearch(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := research.Source(q.Get("source"))
	if source == "" {
		source = research.SourceAuto
	}
	papers, err := w.papers.Search(r.Context(), q.Get("q"), q.Get("domain"), source)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	if papers == nil {
		papers = []domain.ResearchPaper{}
	}
	writeJSON(rw, http.StatusOK, papers)
}

func (w *Web) handlePaperAnalyze(rw http.ResponseWriter, r *http.Request) {
	var paper domain.ResearchPaper
	if err := decodeBody(r, &paper); err != nil || paper.Title == "" {
		writeError(rw, http.StatusBadRequest, "paper title is required")
		return
	}
	w.orch.SendToAnalysis(paper)
	writeJSON(rw, http.StatusOK, map[string]string{"status": "sent", "workspace": string(domain.WorkspacePaper)})
}

func (w *Web) handleExport(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil || req.Content == "" {
		writeError(rw, http.StatusBadRequest, "content is required")
		return
	}
	name := export.Filename(time.Now().UnixMilli())
	rw.Header().Set("Content-Type", "application/vnd.ms-word; charset=utf-8")
	rw.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	rw.Write(export.Doc(req.Title, req.Content))
}

// handleWS upgrades the connection and streams session updates, filtered
// by the optional workspace query parameter.
func (w *Web) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	filter := domain.Workspace(r.URL.Query().Get("workspace"))

	w.mu.Lock()
	w.clients[conn] = filter
	w.mu.Unlock()

	w.logger.Info("websocket client connected", "filter", filter)

	updates, cancel := w.updates.Subscribe()
	defer func() {
		cancel()
		w.mu.Lock()
		delete(w.clients, conn)
		w.mu.Unlock()
		conn.Close()
		w.logger.Info("websocket client disconnected")
	}()

	// Reader goroutine detects disconnects; the client sends nothing else.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if filter != "" && u.Workspace != filter {
				continue
			}
			data, err := json.Marshal(u)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				w.logger.Debug("websocket write failed", "err", err)
				return
			}
		}
	}
}

func (w *Web) closeAllClients() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for conn := range w.clients {
		conn.Close()
		delete(w.clients, conn)
	}
}
