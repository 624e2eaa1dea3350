package internal

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// AttachedFile is a user-selected file queued for upload with a message.
type AttachedFile struct {
	ID      string
	Name    string
	Kind    AttachmentKind
	Data    []byte
	Preview string
}

// Config assembles an Orchestrator's collaborators.
type Config struct {
	API             SessionAPI
	Invoker         AgentInvoker
	Notifier        Notifier
	ProjectID       string
	ResearchRuntime string // runtime override identifier; empty disables research mode
}

// Orchestrator coordinates one user's chat: the live transcript, the
// in-flight stream reducer, the session listing, and the active agent
// mode. It is the single owner of all mode state; the view layer reads
// derived state and calls the explicit operations here.
type Orchestrator struct {
	mu       sync.Mutex
	store    *SessionStore
	reducer  *StreamReducer
	api      SessionAPI
	invoker  AgentInvoker
	notifier Notifier

	projectID       string
	researchRuntime string

	sessions    []SessionInfo
	nextCursor  string
	loadingMore bool

	sending bool
	mode    AgentMode
	agents  []Agent

	voice *VoiceManager

	// onBlocks, when set, is invoked with a snapshot of the streaming
	// blocks after every folded event and after every clear.
	onBlocks func([]StreamingBlock)
}

// NewOrchestrator creates an orchestrator with a fresh session.
func NewOrchestrator(cfg Config) *Orchestrator {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Orchestrator{
		store:           NewSessionStore(),
		reducer:         NewStreamReducer(),
		api:             cfg.API,
		invoker:         cfg.Invoker,
		notifier:        notifier,
		projectID:       cfg.ProjectID,
		researchRuntime: cfg.ResearchRuntime,
	}
}

// SetNotifier replaces the notification sink.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n != nil {
		o.notifier = n
	}
}

// Store exposes the session store for voice wiring.
func (o *Orchestrator) Store() *SessionStore {
	return o.store
}

// SessionID returns the active session identifier.
func (o *Orchestrator) SessionID() string {
	return o.store.SessionID()
}

// Messages returns a copy of the live transcript.
func (o *Orchestrator) Messages() []Message {
	return o.store.Messages()
}

// StreamingBlocks returns a snapshot of the in-flight blocks.
func (o *Orchestrator) StreamingBlocks() []StreamingBlock {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reducer.Blocks()
}

// OnBlocks registers the streaming render callback.
func (o *Orchestrator) OnBlocks(fn func([]StreamingBlock)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onBlocks = fn
}

// Mode returns the active agent mode.
func (o *Orchestrator) Mode() AgentMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// SetMode switches the active agent mode.
func (o *Orchestrator) SetMode(mode AgentMode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mode = mode
}

// SetAgents installs the known named agents, used to validate agent
// references when selecting persisted sessions.
func (o *Orchestrator) SetAgents(agents []Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents = append([]Agent(nil), agents...)
}

// Sessions returns a copy of the loaded session listing.
func (o *Orchestrator) Sessions() []SessionInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]SessionInfo, len(o.sessions))
	copy(out, o.sessions)
	return out
}

// HasMoreSessions reports whether another listing page is available.
func (o *Orchestrator) HasMoreSessions() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.nextCursor != ""
}

// Sending reports whether a send is in flight.
func (o *Orchestrator) Sending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sending
}

// NewSession starts a fresh chat: new session identifier, empty
// transcript, default mode, all streaming state discarded.
func (o *Orchestrator) NewSession() string {
	id := o.store.Reset()
	o.mu.Lock()
	o.mode = AgentMode{Kind: AgentDefault}
	o.reducer.Reset()
	o.mu.Unlock()
	o.publishBlocks()
	return id
}

// LoadSessions fetches the first page of the session listing, sorted most
// recently updated first. A fetch failure empties the listing.
func (o *Orchestrator) LoadSessions(ctx context.Context) {
	page, err := o.api.ListSessions(ctx, o.projectID, "")
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		LogError("Failed to load sessions: %v", err)
		o.sessions = nil
		o.nextCursor = ""
		return
	}
	o.sessions = page.Sessions
	sortSessions(o.sessions)
	o.nextCursor = page.NextCursor
}

// LoadMoreSessions fetches the next listing page and appends it, dropping
// entries already present.
func (o *Orchestrator) LoadMoreSessions(ctx context.Context) {
	o.mu.Lock()
	if o.nextCursor == "" || o.loadingMore {
		o.mu.Unlock()
		return
	}
	cursor := o.nextCursor
	o.loadingMore = true
	o.mu.Unlock()

	page, err := o.api.ListSessions(ctx, o.projectID, cursor)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.loadingMore = false
	if err != nil {
		LogError("Failed to load more sessions: %v", err)
		return
	}
	existing := make(map[string]bool, len(o.sessions))
	for _, s := range o.sessions {
		existing[s.SessionID] = true
	}
	for _, s := range page.Sessions {
		if !existing[s.SessionID] {
			o.sessions = append(o.sessions, s)
		}
	}
	sortSessions(o.sessions)
	o.nextCursor = page.NextCursor
}

func sortSessions(sessions []SessionInfo) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}

// HandleSessionEvent reacts to a pushed session notification by
// refreshing the listing.
func (o *Orchestrator) HandleSessionEvent(ctx context.Context, ev SessionEvent) {
	if ev.Event == "created" {
		o.LoadSessions(ctx)
	}
}

// SelectSession activates a persisted session: restores its agent mode
// from the listing entry, fetches its history, and rehydrates the
// transcript. An empty or unfetchable history discards the session
// reference and starts fresh, surfacing a notification.
func (o *Orchestrator) SelectSession(ctx context.Context, sessionID string) {
	o.store.Replace(sessionID, nil)
	o.restoreMode(sessionID)

	history, err := o.api.SessionHistory(ctx, o.projectID, sessionID)
	if err != nil {
		LogError("Failed to load chat history: %v", err)
		o.notifier.Error("Failed to load conversation")
		o.store.Reset()
		return
	}
	if len(history.Messages) == 0 {
		o.notifier.Warn("This session has no messages")
		o.store.Reset()
		return
	}

	msgs := NewRehydrator().Rehydrate(history.Messages)
	o.store.Replace(sessionID, msgs)
}

// restoreMode decodes the stored agent tag of the selected session and
// installs the matching mode. Named agents that no longer exist fall back
// to the default agent with a warning.
func (o *Orchestrator) restoreMode(sessionID string) {
	o.mu.Lock()
	var info *SessionInfo
	for i := range o.sessions {
		if o.sessions[i].SessionID == sessionID {
			info = &o.sessions[i]
			break
		}
	}

	mode := AgentMode{Kind: AgentDefault}
	if info != nil {
		mode = info.Mode()
	}

	var warn string
	if mode.Kind == AgentNamed {
		found := false
		for _, a := range o.agents {
			if a.AgentID == mode.AgentID || a.Name == mode.AgentID {
				found = true
				break
			}
		}
		if !found {
			warn = fmt.Sprintf("Agent %q not found. Using default agent.", mode.AgentID)
			mode = AgentMode{Kind: AgentDefault}
		}
	}

	o.mode = mode
	voice := o.voice
	o.mu.Unlock()

	if warn != "" {
		o.notifier.Warn(warn)
	}
	if voice != nil && mode.Kind != AgentVoice {
		voice.Disconnect()
	}
}

// Send issues one conversational turn: appends the user's message, streams
// the response through the reducer, and finalizes the transcript when the
// turn resolves. A second send while one is in flight is rejected. A
// request failure becomes a single synthetic assistant error message.
func (o *Orchestrator) Send(ctx context.Context, text string, files []AttachedFile) error {
	text = strings.TrimSpace(text)
	if text == "" && len(files) == 0 {
		return nil
	}

	o.mu.Lock()
	if o.sending {
		o.mu.Unlock()
		return ErrSendInProgress
	}
	o.sending = true
	mode := o.mode
	o.reducer.Reset()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.sending = false
		o.reducer.Reset()
		o.mu.Unlock()
		o.publishBlocks()
	}()

	var agentID, runtimeOverride string
	switch mode.Kind {
	case AgentNamed:
		agentID = mode.AgentID
	case AgentResearch:
		if o.researchRuntime == "" {
			o.notifier.Error("Research mode is not available")
			return ErrResearchUnavailable
		}
		runtimeOverride = o.researchRuntime
	}

	userMsg := Message{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}
	for _, f := range files {
		userMsg.Attachments = append(userMsg.Attachments, Attachment{
			ID:      f.ID,
			Kind:    f.Kind,
			Name:    f.Name,
			Preview: f.Preview,
		})
	}
	o.store.Append(userMsg)
	o.store.SetInput("")

	epoch := o.store.Epoch()
	sessionID := o.store.SessionID()

	blocks := BuildContentBlocks(files, text)

	onEvent := func(ev StreamEvent) {
		o.mu.Lock()
		o.reducer.Apply(ev)
		o.mu.Unlock()
		o.publishBlocks()
	}

	response, err := o.invoker.Invoke(ctx, blocks, sessionID, o.projectID, onEvent, agentID, runtimeOverride)

	o.mu.Lock()
	var finalized []Message
	if err != nil {
		LogError("Failed to send message: %v", err)
		finalized = o.reducer.Fail(err)
	} else {
		finalized = o.reducer.Finalize(response)
	}
	o.mu.Unlock()

	// A session switch or reset while the request was in flight makes the
	// response stale; drop it rather than apply it to the wrong transcript.
	if !o.store.AppendIfEpoch(epoch, finalized...) {
		LogDebug("Dropped %d message(s) from a stale turn", len(finalized))
		return nil
	}

	o.LoadSessions(ctx)
	return nil
}

// RenameSession updates the session's name server-side and in the loaded
// listing.
func (o *Orchestrator) RenameSession(ctx context.Context, sessionID, name string) error {
	if err := o.api.RenameSession(ctx, o.projectID, sessionID, name); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.sessions {
		if o.sessions[i].SessionID == sessionID {
			o.sessions[i].SessionName = name
		}
	}
	return nil
}

// DeleteSession removes the session server-side. Deleting the active
// session hard-resets all local state.
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID string) error {
	if err := o.api.DeleteSession(ctx, o.projectID, sessionID); err != nil {
		return err
	}

	o.mu.Lock()
	kept := o.sessions[:0]
	for _, s := range o.sessions {
		if s.SessionID != sessionID {
			kept = append(kept, s)
		}
	}
	o.sessions = kept
	voice := o.voice
	current := o.store.SessionID() == sessionID
	o.mu.Unlock()

	if current {
		if voice != nil {
			voice.Disconnect()
		}
		o.NewSession()
	}
	return nil
}

// AttachVoice wires a voice channel into the transcript and switches to
// voice mode. The returned manager handles text input and connection
// status changes for the session.
func (o *Orchestrator) AttachVoice(channel VoiceChannel, model VoiceModel) *VoiceManager {
	manager := NewVoiceManager(o.store, channel, model)
	manager.ClearBlocks = o.ClearStreaming

	o.mu.Lock()
	o.voice = manager
	o.mode = AgentMode{Kind: AgentVoice, VoiceModel: model}
	o.mu.Unlock()
	return manager
}

// DetachVoice disconnects and forgets the voice session.
func (o *Orchestrator) DetachVoice() {
	o.mu.Lock()
	voice := o.voice
	o.voice = nil
	if o.mode.Kind == AgentVoice {
		o.mode = AgentMode{Kind: AgentDefault}
	}
	o.mu.Unlock()
	if voice != nil {
		voice.Disconnect()
	}
}

// ClearStreaming discards all in-flight streaming state.
func (o *Orchestrator) ClearStreaming() {
	o.mu.Lock()
	o.reducer.Reset()
	o.mu.Unlock()
	o.publishBlocks()
}

func (o *Orchestrator) publishBlocks() {
	o.mu.Lock()
	fn := o.onBlocks
	var snapshot []StreamingBlock
	if fn != nil {
		snapshot = o.reducer.Blocks()
	}
	o.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}

// BuildContentBlocks converts attached files plus the message text into
// outbound content blocks. Document names are de-duplicated with a
// counter suffix before the extension; jpeg images are normalized to jpg.
func BuildContentBlocks(files []AttachedFile, text string) []ContentBlock {
	var blocks []ContentBlock
	usedNames := make(map[string]bool)

	for _, f := range files {
		encoded := base64.StdEncoding.EncodeToString(f.Data)
		if f.Kind == AttachmentImage {
			format := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
			if format == "" {
				format = "png"
			}
			if format == "jpeg" {
				format = "jpg"
			}
			blocks = append(blocks, ContentBlock{
				Image: &ImageBlock{Format: format, Source: BlockSource{Base64: encoded}},
			})
			continue
		}

		format := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
		if format == "" {
			format = "txt"
		}
		name := uniqueDocName(f.Name, usedNames)
		blocks = append(blocks, ContentBlock{
			Document: &DocumentBlock{Format: format, Name: name, Source: BlockSource{Base64: encoded}},
		})
	}

	if text != "" {
		blocks = append(blocks, ContentBlock{Text: text})
	}
	return blocks
}

// uniqueDocName suffixes duplicate document names with a counter placed
// before the extension.
func uniqueDocName(original string, used map[string]bool) string {
	name := original
	counter := 1
	for used[name] {
		if dot := strings.LastIndex(original, "."); dot > 0 {
			name = fmt.Sprintf("%s_%d%s", original[:dot], counter, original[dot:])
		} else {
			name = fmt.Sprintf("%s_%d", original, counter)
		}
		counter++
	}
	used[name] = true
	return name
}
