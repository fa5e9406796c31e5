package assistant

import "fmt"

// Tool dispatch tables. Each workspace maps its tool ids to a declarative
// record: label, model tier (pro or flash), whether the call carries the
// web-search tool, and a prompt builder over the workspace's input struct.

type roadmapTool struct {
	Label  string
	Pro    bool
	Search bool
	Build  func(in RoadmapInput) string
}

type rndTool struct {
	Label  string
	Pro    bool
	Search bool
	Build  func(in RndInput) string
}

type startupTool struct {
	Label  string
	Pro    bool
	Search bool
	Build  func(in StartupInput) string
}

type paperTool struct {
	Label  string
	Pro    bool
	Search bool
	Build  func(in PaperInput) string
}

var roadmapTools = map[string]roadmapTool{
	"adaptive": {"Adaptive Path", true, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Create an adaptive learning roadmap for %q at %s level, %s hours per week, goal: %s, timeline: %s.", in.Subject, in.Level, in.Hours, in.Goal, in.Timeline)
	}},
	"tutor": {"Auto Tutor", true, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Act as an autonomous coursework tutor. Solve and explain: %s", in.Question)
	}},
	"professor": {"Professor Mode", true, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Give a deep academic explanation of %q as a university professor would.", in.Topic)
	}},
	"gap_analyzer": {"Gap Analyzer", false, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Create a skill gap analysis quiz for %q at %s level.", in.Subject, in.Level)
	}},
	"curator": {"Curator", false, true, func(in RoadmapInput) string {
		return fmt.Sprintf("Curate the best current learning resources for %q.", in.Subject)
	}},
	"planner": {"Planner", true, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Generate a study planner for %q, %s hours per week over %s.", in.Subject, in.Hours, in.Timeline)
	}},
	"visualizer": {"Deep Visualizer", true, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Explain %q in depth with context, mechanism, and a step-by-step breakdown.", in.Topic)
	}},
	"practice": {"Practice", true, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Generate practice questions for %q at %s level.", in.Topic, in.Level)
	}},
	"project": {"Projects", false, true, func(in RoadmapInput) string {
		return fmt.Sprintf("Suggest real-world projects to learn %q, with tools and outcomes for each.", in.Subject)
	}},
	"exam": {"Exam Prep", true, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Build an exam preparation strategy for %s within %s.", in.ExamName, in.Timeline)
	}},
	"career": {"Career", false, true, func(in RoadmapInput) string {
		return fmt.Sprintf("Design a career-aligned learning path toward %q starting from %q.", in.CareerGoal, in.Subject)
	}},
	"style": {"Style Adapt", false, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Explain %q adapted for a %s learner.", in.Topic, in.Style)
	}},
	"doubt": {"Doubt Solver", true, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Solve this doubt step by step: %s", in.Question)
	}},
	"revision": {"Revision", false, false, func(in RoadmapInput) string {
		return fmt.Sprintf("Create a spaced repetition revision plan for %q.", in.Subject)
	}},
}

var rndTools = map[string]rndTool{
	"ara": {"ARA Agent", true, true, func(in RndInput) string {
		return fmt.Sprintf("Act as an autonomous research agent for %q. Plan, search, and synthesize findings.", firstNonEmpty(in.Field, in.Problem))
	}},
	"collab_swarm": {"AI Swarm", true, false, func(in RndInput) string {
		return fmt.Sprintf("Simulate a multi-agent research team debating approaches to: %s", firstNonEmpty(in.Problem, in.Field))
	}},
	"code_sandbox": {"Code Sandbox", true, false, func(in RndInput) string {
		return fmt.Sprintf("Write, explain, and fix code for: %s", in.Problem)
	}},
	"data_analyst": {"Data Analyst", true, false, func(in RndInput) string {
		return fmt.Sprintf("Analyze the uploaded dataset for %q and report key insights.", in.Problem)
	}},
	"biotech": {"Biotech Agent", true, true, func(in RndInput) string {
		return fmt.Sprintf("Act as a biotech research agent on: %s", in.Problem)
	}},
	"quant": {"Quant Finance", true, true, func(in RndInput) string {
		return fmt.Sprintf("Act as a quantitative finance agent on: %s", in.Problem)
	}},
	"legal_research": {"Legal Agent", true, true, func(in RndInput) string {
		return fmt.Sprintf("Research case law and legal considerations for: %s", in.Problem)
	}},
	"hypothesis": {"Hypothesis Gen", true, false, func(in RndInput) string {
		return fmt.Sprintf("Generate testable scientific hypotheses for %q.", in.Field)
	}},
	"unknowns": {"Discovery Mode", true, true, func(in RndInput) string {
		return fmt.Sprintf("Identify unknown unknowns and unexplored directions in %q.", in.Field)
	}},
	"discovery": {"Trend Scan", false, true, func(in RndInput) string {
		return fmt.Sprintf("Scan current global research trends in %q.", in.Field)
	}},
	"proposal": {"Proposal", true, false, func(in RndInput) string {
		return fmt.Sprintf("Draft a grant proposal outline for research on %q.", firstNonEmpty(in.Problem, in.Field))
	}},
	"experiment": {"Experiment", true, false, func(in RndInput) string {
		return fmt.Sprintf("Design a lab experiment to investigate: %s", firstNonEmpty(in.Problem, in.Field))
	}},
	"dataset": {"Dataset", false, true, func(in RndInput) string {
		return fmt.Sprintf("Find datasets relevant to research on %q.", firstNonEmpty(in.Problem, in.Field))
	}},
	"score": {"Idea Score", true, false, func(in RndInput) string {
		return fmt.Sprintf("Score the feasibility and novelty of this idea: %s", firstNonEmpty(in.Problem, in.Field))
	}},
	"patent": {"Patent", false, true, func(in RndInput) string {
		return fmt.Sprintf("Check the patent and IP landscape around: %s", firstNonEmpty(in.Problem, in.Field))
	}},
	"comparison": {"Compare", true, false, func(in RndInput) string {
		return fmt.Sprintf("Compare competing methods for: %s", firstNonEmpty(in.Problem, in.Field))
	}},
	"cross_disciplinary": {"Cross-Field", true, false, func(in RndInput) string {
		return fmt.Sprintf("Propose hybrid research ideas combining %q and %q.", in.Field, in.SecondaryField)
	}},
	"funding": {"Funding", false, true, func(in RndInput) string {
		return fmt.Sprintf("Find funding sources and grants for research in %q.", in.Field)
	}},
	"industry": {"Industry", false, true, func(in RndInput) string {
		return fmt.Sprintf("Map the industry landscape around %q.", in.Field)
	}},
	"roadmap": {"Roadmap", true, false, func(in RndInput) string {
		return fmt.Sprintf("Create an R&D execution roadmap for %q.", in.Field)
	}},
	"collaboration": {"Partners", false, true, func(in RndInput) string {
		return fmt.Sprintf("Find potential collaborators and labs working on %q.", in.Field)
	}},
	"ethics": {"Ethics", true, false, func(in RndInput) string {
		return fmt.Sprintf("Assess ethical risks of research on %q.", firstNonEmpty(in.Problem, in.Field))
	}},
}

var startupTools = map[string]startupTool{
	"blueprint": {"Blueprint", true, false, func(in StartupInput) string {
		return fmt.Sprintf("Generate a full business blueprint for a %s startup at stage %q solving: %s. Geography: %s, target audience: %s.", in.Domain, in.Stage, in.Problem, in.Geography, in.TargetAudience)
	}},
	"competitor": {"Competitors", false, true, func(in StartupInput) string {
		return fmt.Sprintf("Run a real-time competitor and market analysis for a %s startup solving: %s.", in.Domain, in.Problem)
	}},
	"pitch": {"Pitch Deck", true, false, func(in StartupInput) string {
		return fmt.Sprintf("Generate content for a 10-slide pitch deck for a %s startup solving: %s.", in.Domain, in.Problem)
	}},
	"roadmap": {"Roadmap", false, false, func(in StartupInput) string {
		return fmt.Sprintf("Create a startup execution roadmap from pre-MVP to Series A for a %s company.", in.Domain)
	}},
	"finance": {"Finance", true, false, func(in StartupInput) string {
		return fmt.Sprintf("Build financial projections for a %s startup. Pricing: %s, CAC: %s, budget: %s.", in.Domain, in.Pricing, in.CAC, in.Budget)
	}},
	"funding": {"Funding", false, true, func(in StartupInput) string {
		return fmt.Sprintf("Match investors and funding options for a %s startup at stage %q in %s.", in.Domain, in.Stage, in.Geography)
	}},
	"prd": {"PRD", true, false, func(in StartupInput) string {
		return fmt.Sprintf("Write a product requirements document for a %s product solving: %s.", in.Domain, in.Problem)
	}},
	"legal": {"Legal", false, true, func(in StartupInput) string {
		return fmt.Sprintf("Outline legal and compliance requirements for a %s startup operating in %s.", in.Domain, in.Geography)
	}},
	"brand": {"Brand", false, false, func(in StartupInput) string {
		return fmt.Sprintf("Create a brand identity kit for a %s startup.", in.Domain)
	}},
	"gtm": {"GTM", false, true, func(in StartupInput) string {
		return fmt.Sprintf("Design a go-to-market strategy for a %s startup targeting %s.", in.Domain, in.TargetAudience)
	}},
	"simulator": {"Simulator", false, false, func(in StartupInput) string {
		return fmt.Sprintf("Roleplay as a skeptical target customer for a %s product aimed at %s.", in.Domain, in.TargetAudience)
	}},
	"tech": {"Tech Stack", true, false, func(in StartupInput) string {
		return fmt.Sprintf("Recommend a technical architecture and stack for a %s product.", in.Domain)
	}},
}

var paperTools = map[string]paperTool{
	"fusion": {"Fusion Engine", true, true, func(in PaperInput) string {
		return "Analyze the attached paper and fuse it with current web findings on the same topic."
	}},
	"drafter": {"Paper Drafter", true, false, func(in PaperInput) string {
		return fmt.Sprintf("Auto-construct a research paper draft from these notes: %s", in.Text)
	}},
	"diagram_gen": {"Diagram Gen", true, false, func(in PaperInput) string {
		return "Generate flowchart descriptions and LaTeX diagram code for the attached paper."
	}},
	"validator": {"Validator", true, false, func(in PaperInput) string {
		return "Check the logic and statistics of the attached paper for errors."
	}},
	"deep_explain": {"Deep Explain", true, false, func(in PaperInput) string {
		return "Break down every concept in the attached paper in depth."
	}},
	"lit_review": {"Lit Review", false, true, func(in PaperInput) string {
		return "Place the attached paper in its literature context with citations."
	}},
	"gap_finder": {"Gap Finder", true, false, func(in PaperInput) string {
		return "Identify the research gaps the attached paper leaves open."
	}},
	"compare": {"Compare", true, false, func(in PaperInput) string {
		return "Compare the attached papers against each other on method and results."
	}},
	"reproduce": {"Reproduce", true, false, func(in PaperInput) string {
		return "Write a reproduction plan for the attached paper's experiments."
	}},
	"visualize": {"Visualize", false, false, func(in PaperInput) string {
		return "Produce a visual reading guide for the attached paper."
	}},
	"extract": {"Extract", false, false, func(in PaperInput) string {
		return "Extract all datasets, metrics, and results from the attached paper."
	}},
	"prereq": {"Prereqs", false, false, func(in PaperInput) string {
		return "List the background knowledge needed to understand the attached paper."
	}},
	"citation": {"Citation", false, true, func(in PaperInput) string {
		return "Produce citations for the attached paper in common formats."
	}},
	"simplify": {"Simplify", false, false, func(in PaperInput) string {
		return "Summarize the attached paper for a layman."
	}},
	"presentation": {"Slides", true, false, func(in PaperInput) string {
		return "Turn the attached paper into slide deck content."
	}},
	"code": {"Code", true, false, func(in PaperInput) string {
		return "Implement the attached paper's algorithm as working code."
	}},
	"paraphrase": {"Paraphrase", false, false, func(in PaperInput) string {
		return fmt.Sprintf("Paraphrase this academic text, keeping its meaning: %s", in.Text)
	}},
	"review": {"Review", true, false, func(in PaperInput) string {
		return "Write a peer review of the attached paper."
	}},
}

// Tools lists a workspace's tool ids and labels, for surfaces that render
// the catalog. Order is not significant.
func Tools(ws string) map[string]string {
	out := make(map[string]string)
	switch ws {
	case "roadmap":
		for id, t := range roadmapTools {
			out[id] = t.Label
		}
	case "rnd":
		for id, t := range rndTools {
			out[id] = t.Label
		}
	case "startup":
		for id, t := range startupTools {
			out[id] = t.Label
		}
	case "paper":
		for id, t := range paperTools {
			out[id] = t.Label
		}
	}
	return out
}
