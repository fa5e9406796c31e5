package assistant

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"kanad/internal/domain"
)

// Pending input state per workspace. Each struct mirrors the fields the
// workspace's tools draw from; the orchestrator owns one of each and
// resets them when a session is closed.

type RoadmapInput struct {
	Subject    string              `json:"subject"`
	Level      string              `json:"level"`
	Hours      string              `json:"hours"`
	Goal       string              `json:"goal"`
	Timeline   string              `json:"timeline"`
	Topic      string              `json:"topic"`
	ExamName   string              `json:"examName"`
	CareerGoal string              `json:"careerGoal"`
	Style      string              `json:"style"`
	Question   string              `json:"question"`
	Files      []domain.Attachment `json:"files,omitempty"`
}

type RndInput struct {
	Field          string              `json:"field"`
	Problem        string              `json:"problem"`
	SecondaryField string              `json:"secondaryField"`
	Files          []domain.Attachment `json:"files,omitempty"`
}

type StartupInput struct {
	Domain         string `json:"domain"`
	Stage          string `json:"stage"`
	Problem        string `json:"problem"`
	Geography      string `json:"geography"`
	Pricing        string `json:"pricing"`
	CAC            string `json:"cac"`
	Budget         string `json:"budget"`
	TargetAudience string `json:"targetAudience"`
}

type PaperInput struct {
	Text  string              `json:"text"`
	Files []domain.Attachment `json:"files,omitempty"`
}

type VisualInput struct {
	Prompt       string `json:"prompt"`
	ImagePreview string `json:"imagePreview,omitempty"`
}

func defaultRoadmapInput() RoadmapInput {
	return RoadmapInput{Level: "Intermediate", Hours: "5", Timeline: "1 Month", Style: "Visual"}
}

func defaultStartupInput() StartupInput {
	return StartupInput{Stage: "Early idea", Geography: "Global"}
}

// sessionTitle derives an archive title from the workspace's current tool
// and input fields. Computed once at archive time, never recomputed.
func (o *Orchestrator) sessionTitle(ws domain.Workspace) string {
	switch ws {
	case domain.WorkspaceRoadmap:
		in := o.roadmapIn
		for _, s := range []string{in.Subject, in.Topic, in.ExamName} {
			if s != "" {
				return s
			}
		}
		return "Roadmap: " + o.toolLabel(ws)
	case domain.WorkspaceRnd:
		if o.rndIn.Field != "" {
			return o.rndIn.Field
		}
		return "R&D: " + o.toolLabel(ws)
	case domain.WorkspaceStartup:
		if o.startupIn.Domain != "" {
			return o.startupIn.Domain
		}
		return "Startup: " + o.toolLabel(ws)
	case domain.WorkspacePaper:
		if len(o.paperIn.Files) > 0 {
			return o.paperIn.Files[0].Name
		}
		return "Paper Analysis"
	case domain.WorkspaceVisual:
		return "Image Analysis"
	}
	return "Research Session"
}

func (o *Orchestrator) toolLabel(ws domain.Workspace) string {
	switch ws {
	case domain.WorkspaceRoadmap:
		if t, ok := roadmapTools[o.roadmapTool]; ok {
			return t.Label
		}
	case domain.WorkspaceRnd:
		if t, ok := rndTools[o.rndTool]; ok {
			return t.Label
		}
	case domain.WorkspaceStartup:
		if t, ok := startupTools[o.startupTool]; ok {
			return t.Label
		}
	case domain.WorkspacePaper:
		if t, ok := paperTools[o.paperTool]; ok {
			return t.Label
		}
	}
	return "General"
}

// resetInputs restores a workspace's pending input to its defaults.
// Tool selection is cleared along with the fields.
func (o *Orchestrator) resetInputs(ws domain.Workspace) {
	switch ws {
	case domain.WorkspaceRoadmap:
		o.roadmapIn = defaultRoadmapInput()
		o.roadmapTool = ""
	case domain.WorkspaceRnd:
		o.rndIn = RndInput{}
		o.rndTool = ""
	case domain.WorkspaceStartup:
		o.startupIn = defaultStartupInput()
		o.startupTool = ""
	case domain.WorkspacePaper:
		o.paperIn = PaperInput{}
		o.paperTool = ""
	case domain.WorkspaceVisual:
		o.visualIn = VisualInput{}
	}
}

// userSummary composes the user-facing description of a generation request
// from the workspace's tool and inputs. Attachments and image previews the
// tool accepts travel with the message.
func (o *Orchestrator) userSummary(ws domain.Workspace) (content string, preview string, files []domain.Attachment) {
	switch ws {
	case domain.WorkspaceRoadmap:
		in := o.roadmapIn
		subject := firstNonEmpty(in.Subject, in.Topic, in.ExamName, "My Learning Plan")
		label := "Learning Roadmap"
		if t, ok := roadmapTools[o.roadmapTool]; ok {
			label = t.Label
		}
		content = fmt.Sprintf("%s: %s", label, subject)
		switch o.roadmapTool {
		case "doubt":
			content = "Doubt: " + in.Question
			files = in.Files
		case "tutor":
			content = "Autonomous Tutor: " + in.Question
			files = in.Files
		case "professor":
			content = "Professor Mode: " + in.Topic
		}
	case domain.WorkspaceRnd:
		in := o.rndIn
		label := "R&D Analysis"
		if t, ok := rndTools[o.rndTool]; ok {
			label = t.Label
		}
		content = fmt.Sprintf("%s: %s", label, in.Field)
		if in.Problem != "" {
			content += " - " + in.Problem
		}
		switch o.rndTool {
		case "cross_disciplinary":
			content += " + " + in.SecondaryField
		case "data_analyst":
			if len(in.Files) > 0 {
				files = in.Files
				content = "Analyzing uploaded dataset for " + in.Problem
			}
		case "ara", "collab_swarm":
			content = fmt.Sprintf("%s: %s", label, firstNonEmpty(in.Field, in.Problem))
		case "code_sandbox":
			content = "Code Sandbox: " + in.Problem
		case "biotech":
			content = "Biotech Agent: " + in.Problem
		case "legal_research":
			content = "Legal Agent: " + in.Problem
		case "quant":
			content = "Quant Finance: " + in.Problem
		}
	case domain.WorkspaceStartup:
		label := "Startup Helper"
		if t, ok := startupTools[o.startupTool]; ok {
			label = t.Label
		}
		content = fmt.Sprintf("%s: %s", label, o.startupIn.Domain)
		if o.startupTool == "simulator" {
			content = "Starting Customer Simulator for " + o.startupIn.Domain
		}
	case domain.WorkspacePaper:
		label := "Paper Analysis"
		if t, ok := paperTools[o.paperTool]; ok {
			label = t.Label
		}
		content = label + " for attached documents."
		if o.paperIn.Text != "" {
			content += " Note: " + truncate(o.paperIn.Text, 30) + "..."
		}
		files = o.paperIn.Files
	case domain.WorkspaceVisual:
		content = firstNonEmpty(o.visualIn.Prompt, "Analyze this image")
		preview = o.visualIn.ImagePreview
	}
	return content, preview, files
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimSpace(s[:n])
}
