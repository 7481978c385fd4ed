package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notaclin/internal/extraction"
	"github.com/fyrsmithlabs/notaclin/internal/logging"
)

const (
	toolAnalyzeNote = "analyze_note"
	toolListFields  = "list_fields"
	toolLookupField = "lookup_field"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	for _, meta := range []*ToolMetadata{
		{
			Name:        toolAnalyzeNote,
			Description: "Extract vital signs, demographics, muscle grades and neurological findings from a Spanish clinical note",
			Category:    CategoryExtraction,
			Keywords:    []string{"nota", "constantes", "exploración", "observations"},
		},
		{
			Name:        toolListFields,
			Description: "List the fields analyze_note can report, optionally filtered by family",
			Category:    CategoryCatalog,
			Keywords:    []string{"catalog", "campos"},
		},
		{
			Name:        toolLookupField,
			Description: "Describe a single field: its family, anchor phrase and canonical value",
			Category:    CategoryCatalog,
			Keywords:    []string{"catalog", "campo"},
		},
	} {
		if err := s.toolRegistry.Register(meta); err != nil {
			return err
		}
	}

	s.registerAnalyzeTool()
	s.registerCatalogTools()
	return nil
}

func (s *Server) describe(name string) string {
	if meta, ok := s.toolRegistry.Get(name); ok {
		return meta.Description
	}
	return ""
}

// ===== EXTRACTION TOOLS =====

type analyzeNoteInput struct {
	Text   string `json:"text,omitempty" jsonschema:"Free-text clinical note in Spanish"`
	NoteID string `json:"note_id,omitempty" jsonschema:"Optional caller identifier echoed into logs"`
}

type analyzeNoteOutput struct {
	Results []extraction.Result `json:"results" jsonschema:"Extracted observations, one per field"`
}

func (s *Server) registerAnalyzeTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolAnalyzeNote,
		Description: s.describe(toolAnalyzeNote),
	}, measured(s.metrics, toolAnalyzeNote, func(ctx context.Context, req *mcp.CallToolRequest, args analyzeNoteInput) (*mcp.CallToolResult, analyzeNoteOutput, error) {
		if args.NoteID != "" {
			if !logging.ValidID(args.NoteID) {
				return nil, analyzeNoteOutput{}, fmt.Errorf("%w: note_id", errInvalidArgument)
			}
			ctx = logging.WithNoteID(ctx, args.NoteID)
		}

		analysis, err := s.analyzer.Analyze(ctx, args.Text)
		if err != nil {
			s.logger.Error("analysis failed", append(logging.ContextFields(ctx), zap.Error(err))...)
			return nil, analyzeNoteOutput{}, fmt.Errorf("analysis failed: %w", err)
		}

		out := analyzeNoteOutput{Results: analysis.Results}
		if out.Results == nil {
			out.Results = []extraction.Result{}
		}
		s.logger.Debug("note analyzed", append(logging.ContextFields(ctx),
			zap.String("tool", toolAnalyzeNote),
			zap.Int("results", len(out.Results)),
		)...)
		return nil, out, nil
	}))
}

// ===== CATALOG TOOLS =====

type listFieldsInput struct {
	Family string `json:"family,omitempty" jsonschema:"Filter to one family: vital, muscle or neuro"`
}

type listFieldsOutput struct {
	Fields []extraction.FieldSpec `json:"fields" jsonschema:"Catalog entries in reporting order"`
	Count  int                    `json:"count" jsonschema:"Number of fields returned"`
}

type lookupFieldInput struct {
	Field string `json:"field" jsonschema:"Field key, e.g. ta or pupilas"`
}

type lookupFieldOutput struct {
	Spec extraction.FieldSpec `json:"spec" jsonschema:"Catalog entry for the field"`
}

func (s *Server) registerCatalogTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolListFields,
		Description: s.describe(toolListFields),
	}, measured(s.metrics, toolListFields, func(ctx context.Context, req *mcp.CallToolRequest, args listFieldsInput) (*mcp.CallToolResult, listFieldsOutput, error) {
		family := extraction.Family(args.Family)
		switch family {
		case "", extraction.FamilyVital, extraction.FamilyMuscle, extraction.FamilyNeuro:
		default:
			return nil, listFieldsOutput{}, fmt.Errorf("%w: family %q", errInvalidArgument, args.Family)
		}

		fields := make([]extraction.FieldSpec, 0)
		for _, spec := range extraction.Fields() {
			if family == "" || spec.Family == family {
				fields = append(fields, spec)
			}
		}
		return nil, listFieldsOutput{Fields: fields, Count: len(fields)}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolLookupField,
		Description: s.describe(toolLookupField),
	}, measured(s.metrics, toolLookupField, func(ctx context.Context, req *mcp.CallToolRequest, args lookupFieldInput) (*mcp.CallToolResult, lookupFieldOutput, error) {
		spec, ok := extraction.Lookup(extraction.FieldKey(args.Field))
		if !ok {
			return nil, lookupFieldOutput{}, fmt.Errorf("%w: unknown field %q", errInvalidArgument, args.Field)
		}
		return nil, lookupFieldOutput{Spec: spec}, nil
	}))
}
