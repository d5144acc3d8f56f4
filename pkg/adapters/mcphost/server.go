// Package mcphost exposes one story as an MCP server over stdio, so
// agent runtimes can read and steer a narrative through tool calls.
// Stdio means a single client, so the host owns a single story and
// serializes calls to it.
package mcphost

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/weftworks/skein"
	"github.com/weftworks/skein/pkg/story"
)

// ViewResponse is the structured state every tool returns.
type ViewResponse struct {
	State         string     `json:"state" jsonschema_description:"Current playback state"`
	Passage       string     `json:"passage" jsonschema_description:"Name of the current passage"`
	Text          string     `json:"text" jsonschema_description:"Narrative text produced so far in this passage"`
	Links         []LinkView `json:"links" jsonschema_description:"Choices currently on offer"`
	History       []string   `json:"history" jsonschema_description:"Every passage entered, in order"`
	LinksFollowed int        `json:"links_followed" jsonschema_description:"How many links have completed navigation"`
}

// LinkView is one offered choice.
type LinkView struct {
	Index  int    `json:"index" jsonschema_description:"Zero-based position for story_choose"`
	Name   string `json:"name" jsonschema_description:"Link label"`
	Target string `json:"target,omitempty" jsonschema_description:"Destination passage, when the link navigates"`
}

// Server wraps a story as an MCP server.
type Server struct {
	mu        sync.Mutex
	story     *skein.Story
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server around the story.
func NewServer(st *skein.Story) *Server {
	s := &Server{
		story:     st,
		mcpServer: server.NewMCPServer("skein-mcp", strings.TrimSpace(skein.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on stdin/stdout and blocks.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("story_view",
		mcp.WithDescription("Read the current story state: passage, text, choices and history."),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handleView))

	s.mcpServer.AddTool(mcp.NewTool("story_begin",
		mcp.WithDescription("Start (or restart from the beginning) the story at its start passage."),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handleBegin))

	s.mcpServer.AddTool(mcp.NewTool("story_choose",
		mcp.WithDescription("Follow one of the offered links, by 1-based number or by name."),
		mcp.WithString("choice", mcp.Required(), mcp.Description("Link number (as shown by story_view, plus one) or link name")),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("story_goto",
		mcp.WithDescription("Navigate directly to a named passage. Only legal while the story is idle."),
		mcp.WithString("passage", mcp.Required(), mcp.Description("Passage name")),
		mcp.WithOutputSchema[ViewResponse](),
	), mcp.NewStructuredToolHandler(s.handleGoto))
}

func (s *Server) handleView(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ViewResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

func (s *Server) handleBegin(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ViewResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.story.Begin(); err != nil {
		return ViewResponse{}, fmt.Errorf("begin failed: %w", err)
	}
	return s.view(), nil
}

func (s *Server) handleChoose(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ViewResponse, error) {
	choice, _ := args["choice"].(string)
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return ViewResponse{}, fmt.Errorf("choice is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if n, convErr := strconv.Atoi(choice); convErr == nil {
		err = s.story.FollowLinkAt(n - 1)
	} else {
		err = s.story.FollowLinkNamed(choice)
	}
	if err != nil {
		return ViewResponse{}, fmt.Errorf("choose failed: %w", err)
	}
	return s.view(), nil
}

func (s *Server) handleGoto(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ViewResponse, error) {
	passage, _ := args["passage"].(string)
	if passage == "" {
		return ViewResponse{}, fmt.Errorf("passage is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.story.GoTo(passage); err != nil {
		return ViewResponse{}, fmt.Errorf("goto failed: %w", err)
	}
	return s.view(), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("skein://transcript", "Current Passage Transcript",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		s.mu.Lock()
		text := transcript(s.story.Output())
		s.mu.Unlock()
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "skein://transcript",
				MIMEType: "text/plain",
				Text:     text,
			},
		}, nil
	})
}

// view snapshots the story. Callers hold s.mu.
func (s *Server) view() ViewResponse {
	v := ViewResponse{
		State:         string(s.story.State()),
		Passage:       s.story.CurrentPassage(),
		Text:          transcript(s.story.Output()),
		Links:         []LinkView{},
		History:       s.story.History(),
		LinksFollowed: s.story.LinksFollowed(),
	}
	for i, l := range s.story.Links() {
		v.Links = append(v.Links, LinkView{Index: i, Name: l.Name, Target: l.Target})
	}
	return v
}

func transcript(items []story.Output) string {
	var b strings.Builder
	for _, o := range items {
		switch item := o.(type) {
		case *story.Text:
			b.WriteString(item.Content)
		case *story.LineBreak:
			b.WriteString("\n")
		}
	}
	return b.String()
}
