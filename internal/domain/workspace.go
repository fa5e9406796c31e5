package domain

// Workspace is one of the fixed functional areas, each with its own live
// session and pending input state.
type Workspace string

const (
	WorkspaceRoadmap Workspace = "roadmap"
	WorkspaceRnd     Workspace = "rnd"
	WorkspaceStartup Workspace = "startup"
	WorkspacePaper   Workspace = "paper"
	WorkspaceVisual  Workspace = "visual"
	WorkspaceLibrary Workspace = "library"
)

// Workspaces lists every workspace in display order.
var Workspaces = []Workspace{
	WorkspaceRoadmap,
	WorkspaceRnd,
	WorkspaceStartup,
	WorkspacePaper,
	WorkspaceVisual,
	WorkspaceLibrary,
}

// Valid reports whether w names a known workspace.
func (w Workspace) Valid() bool {
	switch w {
	case WorkspaceRoadmap, WorkspaceRnd, WorkspaceStartup, WorkspacePaper, WorkspaceVisual, WorkspaceLibrary:
		return true
	}
	return false
}
