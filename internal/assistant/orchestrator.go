// Package assistant contains the workspace orchestrator: it decides which
// generation calls a workspace action issues, drives the stream consumer,
// fires side-channel generations, and writes everything into the session
// store.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kanad/internal/attachment"
	"kanad/internal/domain"
	"kanad/internal/session"
)

// ErrGenerationInFlight is returned when a generation is requested for a
// workspace that already has one running.
var ErrGenerationInFlight = errors.New("generation already in progress")

const (
	errPrimaryStream = "⚠️ Error: Unable to reach KANAD’s AI brain. Please try again."
	errFollowUp      = "⚠️ Error connecting to AI."
	errImageNone     = "⚠️ Could not generate image at this time."
	errImageFailed   = "⚠️ Error generating image."

	imagePlaceholder = "Generating visualization..."
	imageReady       = "Here is your generated mind map visualization:"
)

// Models maps the two text tiers a tool can ask for to configured model
// names. The image model is the provider's concern.
type Models struct {
	Flash string
	Pro   string
}

// Config wires an Orchestrator's collaborators.
type Config struct {
	Store     *session.Store
	Archive   *session.Archive
	Generator domain.Generator
	Bus       domain.UpdateBus
	Logger    *slog.Logger
	Models    Models
	Timeout   time.Duration
	User      domain.UserContext
}

// Orchestrator owns per-workspace pending input, tool selection, and the
// in-flight flags. It is safe for concurrent use; at most one primary
// generation runs per workspace at a time.
type Orchestrator struct {
	store   *session.Store
	archive *session.Archive
	gen     domain.Generator
	bus     domain.UpdateBus
	logger  *slog.Logger
	models  Models
	timeout time.Duration

	mu       sync.Mutex
	inflight map[domain.Workspace]bool
	user     domain.UserContext

	roadmapTool string
	rndTool     string
	startupTool string
	paperTool   string

	roadmapIn RoadmapInput
	rndIn     RndInput
	startupIn StartupInput
	paperIn   PaperInput
	visualIn  VisualInput
}

func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Orchestrator{
		store:     cfg.Store,
		archive:   cfg.Archive,
		gen:       cfg.Generator,
		bus:       cfg.Bus,
		logger:    logger,
		models:    cfg.Models,
		timeout:   timeout,
		inflight:  make(map[domain.Workspace]bool),
		user:      cfg.User,
		roadmapIn: defaultRoadmapInput(),
		startupIn: defaultStartupInput(),
	}
}

func (o *Orchestrator) model(pro bool) string {
	if pro {
		return o.models.Pro
	}
	return o.models.Flash
}

// SetUserContext updates the persona threaded into every generation.
func (o *Orchestrator) SetUserContext(user domain.UserContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.user = user
}

func (o *Orchestrator) UserContext() domain.UserContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.user
}

// SelectTool sets the active tool for a workspace. An empty id clears the
// selection (the workspace falls back to its default behavior).
func (o *Orchestrator) SelectTool(ws domain.Workspace, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch ws {
	case domain.WorkspaceRoadmap:
		if _, ok := roadmapTools[id]; !ok && id != "" {
			return fmt.Errorf("unknown roadmap tool %q", id)
		}
		o.roadmapTool = id
	case domain.WorkspaceRnd:
		if _, ok := rndTools[id]; !ok && id != "" {
			return fmt.Errorf("unknown rnd tool %q", id)
		}
		o.rndTool = id
	case domain.WorkspaceStartup:
		if _, ok := startupTools[id]; !ok && id != "" {
			return fmt.Errorf("unknown startup tool %q", id)
		}
		o.startupTool = id
	case domain.WorkspacePaper:
		if _, ok := paperTools[id]; !ok && id != "" {
			return fmt.Errorf("unknown paper tool %q", id)
		}
		o.paperTool = id
	default:
		return fmt.Errorf("workspace %s has no tools", ws)
	}
	return nil
}

func (o *Orchestrator) SelectedTool(ws domain.Workspace) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch ws {
	case domain.WorkspaceRoadmap:
		return o.roadmapTool
	case domain.WorkspaceRnd:
		return o.rndTool
	case domain.WorkspaceStartup:
		return o.startupTool
	case domain.WorkspacePaper:
		return o.paperTool
	}
	return ""
}

func (o *Orchestrator) SetRoadmapInput(in RoadmapInput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	in.Files = o.roadmapIn.Files
	o.roadmapIn = in
}

func (o *Orchestrator) SetRndInput(in RndInput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	in.Files = o.rndIn.Files
	o.rndIn = in
}

func (o *Orchestrator) SetStartupInput(in StartupInput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startupIn = in
}

func (o *Orchestrator) SetPaperInput(in PaperInput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	in.Files = o.paperIn.Files
	o.paperIn = in
}

func (o *Orchestrator) SetVisualInput(in VisualInput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visualIn = in
}

// AddAttachment appends an encoded file to the workspace's pending input.
func (o *Orchestrator) AddAttachment(ws domain.Workspace, att domain.Attachment) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch ws {
	case domain.WorkspaceRoadmap:
		o.roadmapIn.Files = append(o.roadmapIn.Files, att)
	case domain.WorkspaceRnd:
		o.rndIn.Files = append(o.rndIn.Files, att)
	case domain.WorkspacePaper:
		o.paperIn.Files = append(o.paperIn.Files, att)
	default:
		return fmt.Errorf("workspace %s does not accept attachments", ws)
	}
	return nil
}

// RemoveAttachment drops the pending attachment at index i. Identity is
// positional; out-of-range indexes are ignored.
func (o *Orchestrator) RemoveAttachment(ws domain.Workspace, i int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch ws {
	case domain.WorkspaceRoadmap:
		o.roadmapIn.Files = attachment.Remove(o.roadmapIn.Files, i)
	case domain.WorkspaceRnd:
		o.rndIn.Files = attachment.Remove(o.rndIn.Files, i)
	case domain.WorkspacePaper:
		o.paperIn.Files = attachment.Remove(o.paperIn.Files, i)
	}
}

func (o *Orchestrator) Attachments(ws domain.Workspace) []domain.Attachment {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch ws {
	case domain.WorkspaceRoadmap:
		return append([]domain.Attachment(nil), o.roadmapIn.Files...)
	case domain.WorkspaceRnd:
		return append([]domain.Attachment(nil), o.rndIn.Files...)
	case domain.WorkspacePaper:
		return append([]domain.Attachment(nil), o.paperIn.Files...)
	}
	return nil
}

// Generate runs a full tool invocation for a workspace: user summary
// message, empty model placeholder, optional side channels, then the
// primary stream. It blocks until the primary stream ends; detached side
// tasks may outlive it.
func (o *Orchestrator) Generate(ctx context.Context, ws domain.Workspace) error {
	if !ws.Valid() || ws == domain.WorkspaceLibrary {
		return fmt.Errorf("workspace %s does not support generation", ws)
	}

	o.mu.Lock()
	if o.inflight[ws] {
		o.mu.Unlock()
		return ErrGenerationInFlight
	}
	if ws == domain.WorkspaceVisual && o.visualIn.ImagePreview == "" {
		o.mu.Unlock()
		return errors.New("no image uploaded for visual analysis")
	}
	o.inflight[ws] = true
	user := o.user
	content, preview, files := o.userSummary(ws)
	req, sidePrompt, err := o.buildRequest(ws)
	o.mu.Unlock()

	// A rejected request leaves pending input (the visual upload included)
	// untouched; only a completed generation consumes it.
	if err != nil {
		o.mu.Lock()
		delete(o.inflight, ws)
		o.mu.Unlock()
		return err
	}
	defer o.finishGeneration(ws)

	req.User = user

	// History reflects the transcript before this request's messages.
	req.History = flattenHistory(o.store.Snapshot(ws))

	userMsg := domain.Message{
		ID:           uuid.NewString(),
		Role:         domain.RoleUser,
		Content:      content,
		Timestamp:    time.Now(),
		ImagePreview: preview,
		Attachments:  files,
	}
	o.store.Append(ws, userMsg)
	o.publish(ws, userMsg)

	// The image side channel appends its own id-patched message before the
	// primary placeholder, so the placeholder stays trailing for the stream.
	if sidePrompt != nil && sidePrompt.image {
		o.spawnMindMap(ws, sidePrompt.subject, user)
	}

	placeholder := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleModel,
		Timestamp: time.Now(),
	}
	o.store.Append(ws, placeholder)
	o.publish(ws, placeholder)

	if sidePrompt != nil && !sidePrompt.image {
		go o.attachRoadmap(ws, placeholder.ID, sidePrompt.subject, sidePrompt.level, user)
	}

	streamCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	o.consumeStream(streamCtx, ws, req, errPrimaryStream)
	return nil
}

func (o *Orchestrator) finishGeneration(ws domain.Workspace) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, ws)
	if ws == domain.WorkspaceVisual {
		// The uploaded image is consumed; it is not resubmitted next turn.
		o.visualIn = VisualInput{}
	}
}

// sideChannel describes the auxiliary generation a tool invocation fires
// alongside its primary stream.
type sideChannel struct {
	subject string
	level   string
	image   bool
}

// buildRequest resolves the workspace's tool into the primary stream
// request and, where the tool calls for one, a side-channel descriptor.
// Callers hold o.mu.
func (o *Orchestrator) buildRequest(ws domain.Workspace) (domain.StreamRequest, *sideChannel, error) {
	var req domain.StreamRequest
	var side *sideChannel

	switch ws {
	case domain.WorkspaceRoadmap:
		id := o.roadmapTool
		if id == "" {
			id = "adaptive"
		}
		t := roadmapTools[id]
		req.Model = o.model(t.Pro)
		req.UseSearch = t.Search
		req.System = t.Label
		req.Parts = append(attachmentParts(o.logger, toolFiles(id, o.roadmapIn.Files, "doubt", "tutor")), domain.Part{Text: t.Build(o.roadmapIn)})
		if id == "adaptive" || id == "visualizer" {
			subject := firstNonEmpty(o.roadmapIn.Subject, o.roadmapIn.Topic, "Learning Path")
			if id == "visualizer" {
				subject = firstNonEmpty(o.roadmapIn.Topic, "Topic")
			}
			side = &sideChannel{subject: subject, level: o.roadmapIn.Level}
		}

	case domain.WorkspaceRnd:
		if o.rndTool == "" {
			req.Model = o.models.Flash
			req.UseSearch = true
			req.System = "R&D Ideation"
			prompt := fmt.Sprintf("Suggest 2-4 R&D directions for the field %q.", o.rndIn.Field)
			if o.rndIn.Problem != "" {
				prompt += " Specific problem context: " + o.rndIn.Problem
			}
			req.Parts = []domain.Part{{Text: prompt}}
			break
		}
		t := rndTools[o.rndTool]
		req.Model = o.model(t.Pro)
		req.UseSearch = t.Search
		req.System = t.Label
		req.Parts = append(attachmentParts(o.logger, toolFiles(o.rndTool, o.rndIn.Files, "data_analyst")), domain.Part{Text: t.Build(o.rndIn)})
		if o.rndTool == "roadmap" {
			side = &sideChannel{subject: "R&D Roadmap for " + o.rndIn.Field, level: "Advanced"}
		}

	case domain.WorkspaceStartup:
		id := o.startupTool
		if id == "" {
			id = "blueprint"
		}
		t := startupTools[id]
		req.Model = o.model(t.Pro)
		req.UseSearch = t.Search
		req.System = t.Label
		req.Parts = []domain.Part{{Text: t.Build(o.startupIn)}}
		if id == "roadmap" {
			side = &sideChannel{subject: "Startup Roadmap for " + o.startupIn.Domain, level: o.startupIn.Stage}
		}

	case domain.WorkspacePaper:
		id := o.paperTool
		if id == "" {
			id = "deep_explain"
		}
		t := paperTools[id]
		req.Model = o.model(t.Pro)
		req.UseSearch = t.Search
		req.System = t.Label
		req.Parts = append(attachmentParts(o.logger, o.paperIn.Files), domain.Part{Text: t.Build(o.paperIn)})
		if id == "visualize" {
			subject := truncate(o.paperIn.Text, 50)
			if len(o.paperIn.Files) > 0 {
				subject = o.paperIn.Files[0].Name
			}
			side = &sideChannel{subject: "Mind Map for " + subject, image: true}
		}

	case domain.WorkspaceVisual:
		mimeType, data, err := attachment.DecodeDataURI(o.visualIn.ImagePreview)
		if err != nil {
			return req, nil, fmt.Errorf("visual input: %w", err)
		}
		prompt := o.visualIn.Prompt
		if prompt == "" {
			prompt = "Analyze this scientific visual. If it is a graph, extract the data trends. If it is a diagram, explain the mechanism. If it is a formula, solve it or explain it."
		}
		req.Model = o.models.Pro
		req.System = "Analyze the provided image scientifically."
		req.Parts = []domain.Part{
			{InlineMIME: mimeType, InlineData: data},
			{Text: prompt},
		}
	}
	return req, side, nil
}

// toolFiles returns files only for the tools that accept them.
func toolFiles(id string, files []domain.Attachment, accepting ...string) []domain.Attachment {
	for _, a := range accepting {
		if id == a {
			return files
		}
	}
	return nil
}

func attachmentParts(logger *slog.Logger, files []domain.Attachment) []domain.Part {
	var parts []domain.Part
	for _, f := range files {
		data, err := attachment.Bytes(f)
		if err != nil {
			logger.Warn("skipping undecodable attachment", "name", f.Name, "err", err)
			continue
		}
		parts = append(parts, domain.Part{InlineMIME: f.MIMEType, InlineData: data})
	}
	return parts
}

// attachRoadmap runs the structured-roadmap side channel and attaches the
// result to the placeholder message by id. A cleared or replaced session
// absorbs the patch silently; failures are logged only.
func (o *Orchestrator) attachRoadmap(ws domain.Workspace, msgID, subject, level string, user domain.UserContext) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	data, err := o.gen.GenerateRoadmap(ctx, subject, level, user)
	if err != nil {
		o.logger.Warn("roadmap generation failed", "workspace", ws, "subject", subject, "err", err)
		return
	}
	if data == nil {
		return
	}
	var patched domain.Message
	ok := o.store.PatchByID(ws, msgID, func(m *domain.Message) {
		m.RoadmapData = data
		patched = m.Clone()
	})
	if ok {
		o.publish(ws, patched)
	}
}

// spawnMindMap appends a separate placeholder for the image side channel
// and patches it by id when the detached task completes. The task may
// outlive the primary stream.
func (o *Orchestrator) spawnMindMap(ws domain.Workspace, prompt string, user domain.UserContext) {
	placeholder := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleModel,
		Content:   imagePlaceholder,
		Timestamp: time.Now(),
	}
	o.store.Append(ws, placeholder)
	o.publish(ws, placeholder)

	go o.generateImageInto(ws, placeholder.ID, prompt, user)
}

func (o *Orchestrator) generateImageInto(ws domain.Workspace, msgID, prompt string, user domain.UserContext) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	uri, err := o.gen.GenerateImage(ctx, prompt, user)
	var patched domain.Message
	ok := o.store.PatchByID(ws, msgID, func(m *domain.Message) {
		switch {
		case err != nil:
			m.Content = errImageFailed
			m.IsError = true
		case uri == "":
			m.Content = errImageNone
			m.IsError = true
		default:
			m.Content = imageReady
			m.ImagePreview = uri
		}
		patched = m.Clone()
	})
	if err != nil {
		o.logger.Warn("image generation failed", "workspace", ws, "err", err)
	}
	if ok {
		o.publish(ws, patched)
	}
}

// FollowUp continues the workspace's conversation with a free-text turn.
func (o *Orchestrator) FollowUp(ctx context.Context, ws domain.Workspace, text string) error {
	if !ws.Valid() {
		return fmt.Errorf("unknown workspace %s", ws)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("empty follow-up")
	}

	o.mu.Lock()
	if o.inflight[ws] {
		o.mu.Unlock()
		return ErrGenerationInFlight
	}
	o.inflight[ws] = true
	user := o.user
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inflight, ws)
		o.mu.Unlock()
	}()

	req := domain.StreamRequest{
		Model:  o.models.Flash,
		System: "Continuing conversation about " + string(ws),
		User:   user,
		Parts:  []domain.Part{{Text: text}},
	}
	switch ws {
	case domain.WorkspaceVisual:
		// Stay on the heavier model so the image context carries over.
		req.Model = o.models.Pro
	case domain.WorkspaceRoadmap, domain.WorkspaceRnd, domain.WorkspaceStartup, domain.WorkspacePaper:
		req.UseSearch = true
	}
	req.History = flattenHistory(o.store.Snapshot(ws))

	userMsg := domain.Message{ID: uuid.NewString(), Role: domain.RoleUser, Content: text, Timestamp: time.Now()}
	o.store.Append(ws, userMsg)
	o.publish(ws, userMsg)

	placeholder := domain.Message{ID: uuid.NewString(), Role: domain.RoleModel, Timestamp: time.Now()}
	o.store.Append(ws, placeholder)
	o.publish(ws, placeholder)

	streamCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	o.consumeStream(streamCtx, ws, req, errFollowUp)
	return nil
}

// MindMap runs a user-triggered mind-map image generation for the
// workspace's current input context. Unlike the paper-visualize side
// channel, this blocks until the image call returns.
func (o *Orchestrator) MindMap(ctx context.Context, ws domain.Workspace) error {
	o.mu.Lock()
	if o.inflight[ws] {
		o.mu.Unlock()
		return ErrGenerationInFlight
	}
	var prompt string
	switch ws {
	case domain.WorkspaceRoadmap:
		if o.roadmapIn.Subject != "" {
			prompt = fmt.Sprintf("%s (%s)", o.roadmapIn.Subject, o.roadmapIn.Level)
		}
	case domain.WorkspaceRnd:
		if o.rndIn.Field != "" {
			prompt = fmt.Sprintf("%s - %s", o.rndIn.Field, o.rndIn.Problem)
		}
	case domain.WorkspacePaper:
		if o.paperIn.Text != "" {
			prompt = "Mind Map of attached paper: " + truncate(o.paperIn.Text, 100)
		}
	case domain.WorkspaceStartup:
		if o.startupTool != "" {
			prompt = fmt.Sprintf("%s for %s", o.startupTool, o.startupIn.Domain)
		}
	}
	if prompt == "" {
		o.mu.Unlock()
		return errors.New("nothing to visualize")
	}
	o.inflight[ws] = true
	user := o.user
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inflight, ws)
		o.mu.Unlock()
	}()

	userMsg := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   "Generate a visual mind map for this.",
		Timestamp: time.Now(),
	}
	o.store.Append(ws, userMsg)
	o.publish(ws, userMsg)

	placeholder := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleModel,
		Content:   imagePlaceholder,
		Timestamp: time.Now(),
	}
	o.store.Append(ws, placeholder)
	o.publish(ws, placeholder)

	o.generateImageInto(ws, placeholder.ID, prompt, user)
	return nil
}

// NewChat archives the workspace's live session and starts a fresh one.
// A request arriving while a stream is active is a silent no-op.
func (o *Orchestrator) NewChat(ws domain.Workspace) {
	o.mu.Lock()
	if o.inflight[ws] {
		o.mu.Unlock()
		o.logger.Debug("new chat ignored while generating", "workspace", ws)
		return
	}
	title := o.sessionTitle(ws)
	o.resetInputs(ws)
	o.mu.Unlock()

	o.archiveLive(ws, title)
	o.store.Clear(ws)
}

// archiveLive snapshots the live session into history. Empty sessions are
// skipped. The snapshot happens strictly before any clear.
func (o *Orchestrator) archiveLive(ws domain.Workspace, title string) {
	msgs := o.store.Snapshot(ws)
	if len(msgs) == 0 {
		return
	}
	o.archive.Archive(domain.ChatSession{
		ID:        uuid.NewString(),
		Workspace: ws,
		Messages:  msgs,
		Title:     title,
		Timestamp: time.Now(),
	})
}

// RestoreSession replaces a workspace's live session with an archived one.
// The current live session is archived first if it has messages. Restoring
// is read-only with respect to history.
func (o *Orchestrator) RestoreSession(id string) bool {
	restored, ok := o.archive.Restore(id)
	if !ok {
		return false
	}
	ws := restored.Workspace

	o.mu.Lock()
	if o.inflight[ws] {
		o.mu.Unlock()
		return false
	}
	title := o.sessionTitle(ws)
	o.mu.Unlock()

	o.archiveLive(ws, title)
	o.store.Replace(ws, restored.Messages)
	o.logger.Info("session restored", "workspace", ws, "id", id, "messages", len(restored.Messages))
	return true
}

// DeleteSession removes an archived session from history.
func (o *Orchestrator) DeleteSession(id string) bool {
	return o.archive.Delete(id)
}

// History lists archived sessions, most recent first.
func (o *Orchestrator) History() []domain.ChatSession {
	return o.archive.List()
}

// Session returns the live transcript of a workspace.
func (o *Orchestrator) Session(ws domain.Workspace) []domain.Message {
	return o.store.Snapshot(ws)
}

// Generating reports whether a primary generation is running for ws.
func (o *Orchestrator) Generating(ws domain.Workspace) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight[ws]
}

// SendToAnalysis bridges a library search result into the paper workspace:
// the paper's metadata becomes the pending analysis text.
func (o *Orchestrator) SendToAnalysis(p domain.ResearchPaper) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paperIn.Text = fmt.Sprintf(
		"Paper Title: %s\nAuthors: %s\n\nAbstract:\n%s\n\n[Please analyze this paper based on the abstract]",
		p.Title, strings.Join(p.Authors, ", "), p.Abstract,
	)
}

// PaperText returns the paper workspace's pending analysis text.
func (o *Orchestrator) PaperText() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paperIn.Text
}
