package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arloq/docchat/internal"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Italic(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	streamStatusStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

// consoleNotifier renders orchestrator notifications inline.
type consoleNotifier struct{}

func (consoleNotifier) Info(msg string) { fmt.Println(noticeStyle.Render("ℹ " + msg)) }
func (consoleNotifier) Warn(msg string) { fmt.Println(toolStyle.Render("⚠ " + msg)) }
func (consoleNotifier) Error(msg string) {
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗ " + msg))
}

var chatCmd *cobra.Command

func initChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat with the agent runtime.

Messages stream live: text deltas, tool invocations, document citations,
and pipeline stages render as they arrive. Slash commands control the
session:

  /new                start a fresh session
  /sessions           list your sessions
  /more               load the next page of sessions
  /use <n|id>         switch to a listed session
  /rename <name>      rename the current session
  /delete             delete the current session
  /agent <id>         switch to a named agent
  /research           toggle research mode
  /voice <model>      start voice mode (nova_sonic, gemini, openai)
  /novoice            leave voice mode
  /attach <path>      attach a file to the next message
  /quit               exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := newOrchestrator()
			if err != nil {
				return err
			}
			session := &chatSession{orch: orch}
			orch.SetNotifier(consoleNotifier{})
			return session.run(cmd.Context())
		},
	}
}

type chatSession struct {
	orch    *internal.Orchestrator
	voice   *internal.VoiceManager
	pending []internal.AttachedFile

	rendered int // messages already printed
}

func (s *chatSession) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.orch.OnBlocks(renderStreamStatus)

	if wsURL != "" {
		listener := internal.NewNotificationListener(wsURL, authToken, func(ev internal.SessionEvent) {
			s.orch.HandleSessionEvent(ctx, ev)
		})
		go listener.Run(ctx)
	}

	s.orch.LoadSessions(ctx)
	fmt.Println(noticeStyle.Render(fmt.Sprintf("Session %s — type a message, or /help for commands", s.orch.SessionID())))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(ctx, line); quit {
				break
			}
			continue
		}

		s.send(ctx, line)
	}

	if s.voice != nil {
		s.voice.Disconnect()
	}
	return scanner.Err()
}

func (s *chatSession) send(ctx context.Context, text string) {
	if s.voice != nil {
		s.voice.HandleText(text)
		s.renderNewMessages()
		return
	}

	files := s.pending
	s.pending = nil
	s.rendered = s.orch.Store().Len()

	err := s.orch.Send(ctx, text, files)
	clearStreamStatus()
	if errors.Is(err, internal.ErrSendInProgress) {
		fmt.Println(toolStyle.Render("⚠ A message is already being sent"))
		return
	}
	if err != nil && !errors.Is(err, internal.ErrResearchUnavailable) {
		internal.LogDebug("Send finished with error: %v", err)
	}
	s.rendered++ // skip echoing the user's own message
	s.renderNewMessages()
}

// renderNewMessages prints transcript messages added since the last render.
func (s *chatSession) renderNewMessages() {
	msgs := s.orch.Messages()
	for ; s.rendered < len(msgs); s.rendered++ {
		renderMessage(msgs[s.rendered])
	}
}

func (s *chatSession) handleCommand(ctx context.Context, line string) (quit bool) {
	parts := strings.SplitN(line, " ", 2)
	command := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch command {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(chatCmd.Long)

	case "/new":
		if s.voice != nil {
			s.leaveVoice()
		}
		id := s.orch.NewSession()
		s.rendered = 0
		fmt.Println(noticeStyle.Render("Started session " + id))

	case "/sessions":
		s.orch.LoadSessions(ctx)
		s.printSessions()

	case "/more":
		s.orch.LoadMoreSessions(ctx)
		s.printSessions()

	case "/use":
		if arg == "" {
			fmt.Println(toolStyle.Render("⚠ Usage: /use <n|session-id>"))
			return false
		}
		sessionID := arg
		if n, err := strconv.Atoi(arg); err == nil {
			sessions := s.orch.Sessions()
			if n < 1 || n > len(sessions) {
				fmt.Println(toolStyle.Render("⚠ No such session number"))
				return false
			}
			sessionID = sessions[n-1].SessionID
		}
		if s.voice != nil {
			s.leaveVoice()
		}
		s.orch.SelectSession(ctx, sessionID)
		s.rendered = 0
		s.renderNewMessages()

	case "/rename":
		if arg == "" {
			fmt.Println(toolStyle.Render("⚠ Usage: /rename <name>"))
			return false
		}
		if err := s.orch.RenameSession(ctx, s.orch.SessionID(), arg); err != nil {
			fmt.Println(toolStyle.Render("⚠ Rename failed: " + err.Error()))
		}

	case "/delete":
		if err := s.orch.DeleteSession(ctx, s.orch.SessionID()); err != nil {
			fmt.Println(toolStyle.Render("⚠ Delete failed: " + err.Error()))
			return false
		}
		s.rendered = 0
		fmt.Println(noticeStyle.Render("Session deleted, started " + s.orch.SessionID()))

	case "/agent":
		if arg == "" || arg == "default" {
			s.orch.SetMode(internal.AgentMode{Kind: internal.AgentDefault})
			fmt.Println(noticeStyle.Render("Using the default agent"))
			return false
		}
		s.orch.SetMode(internal.AgentMode{Kind: internal.AgentNamed, AgentID: arg})
		fmt.Println(noticeStyle.Render("Using agent " + arg))

	case "/research":
		if s.orch.Mode().Kind == internal.AgentResearch {
			s.orch.SetMode(internal.AgentMode{Kind: internal.AgentDefault})
			fmt.Println(noticeStyle.Render("Research mode off"))
		} else {
			s.orch.SetMode(internal.AgentMode{Kind: internal.AgentResearch})
			fmt.Println(noticeStyle.Render("Research mode on"))
		}

	case "/voice":
		s.enterVoice(arg)

	case "/novoice":
		s.leaveVoice()

	case "/attach":
		s.attach(arg)

	default:
		fmt.Println(toolStyle.Render("⚠ Unknown command " + command))
	}
	return false
}

func (s *chatSession) enterVoice(modelArg string) {
	if wsURL == "" {
		fmt.Println(toolStyle.Render("⚠ Voice mode needs --ws-url (or DOCCHAT_WS_URL)"))
		return
	}
	mode := internal.ParseAgentMode("voice_" + modelArg)
	if modelArg == "" {
		mode = internal.ParseAgentMode("voice")
	}
	model := mode.VoiceModel

	channel := internal.NewWebsocketVoiceChannel(wsURL+"/voice", authToken, internal.VoiceEvents{
		OnTranscript: func(text string, role internal.Role, isFinal bool) {
			s.voiceMerger().OnTranscript(text, role, isFinal)
			s.renderNewMessages()
		},
		OnToolUse: func(toolName, toolUseID string, status internal.ToolUseStatus) {
			s.voiceMerger().OnToolUse(toolName, toolUseID, status)
			s.renderNewMessages()
		},
		OnStatus: func(status internal.VoiceStatus) {
			if s.voice != nil {
				s.voice.HandleStatus(status)
			}
			fmt.Println(noticeStyle.Render("Voice: " + string(status)))
		},
	})

	s.voice = s.orch.AttachVoice(channel, model)
	s.rendered = s.orch.Store().Len()
	fmt.Println(noticeStyle.Render(fmt.Sprintf("Voice mode (%s) — messages now go over the voice channel", model)))
}

func (s *chatSession) voiceMerger() *internal.VoiceMerger {
	return s.voice.Merger()
}

func (s *chatSession) leaveVoice() {
	if s.voice == nil {
		return
	}
	s.voice = nil
	s.orch.DetachVoice()
	fmt.Println(noticeStyle.Render("Left voice mode"))
}

func (s *chatSession) attach(path string) {
	if path == "" {
		fmt.Println(toolStyle.Render("⚠ Usage: /attach <path>"))
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(toolStyle.Render("⚠ Cannot read file: " + err.Error()))
		return
	}
	kind := internal.AttachmentDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		kind = internal.AttachmentImage
	}
	s.pending = append(s.pending, internal.AttachedFile{
		ID:   uuid.NewString(),
		Name: filepath.Base(path),
		Kind: kind,
		Data: data,
	})
	fmt.Println(noticeStyle.Render(fmt.Sprintf("Attached %s (%d bytes), %d file(s) pending", filepath.Base(path), len(data), len(s.pending))))
}

func (s *chatSession) printSessions() {
	sessions := s.orch.Sessions()
	if len(sessions) == 0 {
		fmt.Println(noticeStyle.Render("No sessions"))
		return
	}
	for i, info := range sessions {
		name := info.SessionName
		if name == "" {
			name = "Untitled"
		}
		marker := " "
		if info.SessionID == s.orch.SessionID() {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s  %s\n", marker, i+1, name,
			streamStatusStyle.Render(info.SessionID))
	}
	if s.orch.HasMoreSessions() {
		fmt.Println(noticeStyle.Render("(/more for older sessions)"))
	}
}

// renderStreamStatus rewrites a one-line summary of the in-flight blocks.
func renderStreamStatus(blocks []internal.StreamingBlock) {
	if len(blocks) == 0 {
		return
	}
	last := blocks[len(blocks)-1]
	var desc string
	switch last.Kind {
	case internal.BlockText:
		desc = lastLineTail(last.Content, 60)
	case internal.BlockToolUse:
		desc = "tool " + last.Name
	case internal.BlockToolResult:
		desc = "result of " + last.ToolName
	case internal.BlockStageStart:
		desc = "stage " + last.Stage
	case internal.BlockStageComplete:
		desc = "stage " + last.Stage + " done"
	default:
		desc = string(last.Kind)
	}
	fmt.Fprintf(os.Stderr, "\r\033[K%s", streamStatusStyle.Render(fmt.Sprintf("… %d block(s) | %s", len(blocks), desc)))
}

func clearStreamStatus() {
	fmt.Fprint(os.Stderr, "\r\033[K")
}

// lastLineTail returns the trailing n characters of the last line of text.
func lastLineTail(text string, n int) string {
	if i := strings.LastIndex(text, "\n"); i >= 0 {
		text = text[i+1:]
	}
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	return string(runes)
}

// renderMessage prints one transcript message.
func renderMessage(msg internal.Message) {
	switch {
	case msg.IsToolUse:
		icon := "⚙"
		if msg.ToolUseStatus == internal.ToolStatusError {
			icon = "✗"
		}
		fmt.Println(toolStyle.Render(fmt.Sprintf("%s %s (%s)", icon, msg.ToolUseName, msg.ToolUseStatus)))

	case msg.IsToolResult:
		label := "tool result"
		if msg.ToolName != "" {
			label = msg.ToolName
		}
		fmt.Println(toolStyle.Render("⚙ " + label + ":"))
		if msg.Content != "" {
			fmt.Println(indent(msg.Content, "  "))
		}
		if msg.Artifact != nil {
			fmt.Println(sourceStyle.Render("  ↳ artifact: " + msg.Artifact.Filename))
		}
		for _, src := range msg.Sources {
			fmt.Println(sourceStyle.Render("  ↳ source: " + src.DocumentID))
		}
		for _, att := range msg.Attachments {
			fmt.Println(sourceStyle.Render("  ↳ image: " + att.Name))
		}

	case msg.IsStageResult:
		fmt.Println(stageStyle.Render("▸ " + msg.StageName))
		if msg.Content != "" {
			fmt.Println(indent(msg.Content, "  "))
		}

	case msg.Role == internal.RoleAssistant:
		fmt.Println(assistantStyle.Render("assistant>") + " " + msg.Content)

	default:
		fmt.Println(promptStyle.Render("you>") + " " + msg.Content)
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func init() {
	chatCmd = initChatCmd()
	rootCmd.AddCommand(chatCmd)
}
