package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const profilesURI = "tablemerge://profiles"

func (s *Server) registerResources() {
	// ── tablemerge://profiles ──────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		profilesURI,
		"Merge Profiles",
		mcp.WithResourceDescription("Names of all merge profiles"),
		mcp.WithMIMEType("application/json"),
	), s.handleProfilesResource)

	// ── tablemerge://profiles/{name} ───────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			profilesURI+"/{name}",
			"Merge Profile",
			mcp.WithTemplateDescription("One merge profile in full"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleProfileResource,
	)
}

func (s *Server) handleProfilesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, _ := json.MarshalIndent(s.profiles.Names(), "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      profilesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleProfileResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	name := strings.TrimPrefix(uri, profilesURI+"/")

	p, err := s.profiles.Lookup(name)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
