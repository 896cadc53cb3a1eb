// Package suggest turns recorded prompts into scene mutations. It is the
// prompt-processing collaborator of the session store: its output arrives
// as ordinary mutation calls, never as a special message kind. An LLM
// planner is used when configured; keyword heuristics cover the rest.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/svgstudio/server/internal/analysis/sketch"
	"github.com/svgstudio/server/internal/model/scene"
	"github.com/svgstudio/server/internal/service/session"
	"github.com/svgstudio/server/internal/svg"
)

// Config controls the suggestion service.
type Config struct {
	Enabled bool
}

// Service plans and applies scene changes for free-text prompts.
type Service struct {
	enabled bool
	planner compose.Runnable[map[string]any, *schema.Message]
	store   *session.Store
}

// NewService creates the suggestion service. chatModel may be nil, in
// which case every prompt is handled by the heuristic parser.
func NewService(ctx context.Context, chatModel model.ChatModel, store *session.Store, cfg Config) (*Service, error) {
	svc := &Service{
		enabled: cfg.Enabled && chatModel != nil,
		store:   store,
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(plannerSystemPrompt),
		schema.UserMessage(plannerUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile suggestion planner chain: %w", err)
	}

	svc.planner = runnable
	return svc, nil
}

// Enabled reports whether the LLM planner is active.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.planner != nil
}

// Apply plans scene changes for the prompt and commits them through the
// session store. The created element id is returned for logging.
func (s *Service) Apply(ctx context.Context, sessionKey, promptText string) (string, error) {
	plan := s.plan(ctx, promptText)
	return s.execute(ctx, sessionKey, plan)
}

func (s *Service) plan(ctx context.Context, promptText string) sketch.Plan {
	if !s.Enabled() {
		return sketch.Parse(promptText)
	}

	msg, err := s.planner.Invoke(ctx, map[string]any{"prompt": strings.TrimSpace(promptText)})
	if err != nil {
		log.Printf("[suggest] planner invoke failed, use heuristics: %v", err)
		return sketch.Parse(promptText)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return sketch.Parse(promptText)
	}

	parsed, err := parsePlannerOutput(msg.Content)
	if err != nil {
		log.Printf("[suggest] planner output parse failed, use heuristics: %v", err)
		return sketch.Parse(promptText)
	}
	return normalizePlan(parsed, promptText)
}

func (s *Service) execute(ctx context.Context, sessionKey string, plan sketch.Plan) (string, error) {
	canvas := s.store.ActiveCanvas(ctx, sessionKey)
	if canvas == nil {
		return "", fmt.Errorf("session has no canvas")
	}

	cx := float64(canvas.Width) / 2
	cy := float64(canvas.Height) / 2

	rawType, props := elementFor(plan, cx, cy)
	element, err := s.store.AddElement(ctx, sessionKey, canvas.ID, rawType, props)
	if err != nil {
		return "", fmt.Errorf("add suggested element: %w", err)
	}

	if plan.Motion != sketch.MotionNone {
		attribute, from, to, duration := animationFor(plan, element, cx, cy)
		if attribute != "" {
			if _, err := s.store.AddAnimation(ctx, sessionKey, element.ID, attribute, from, to, duration, scene.Indefinitely); err != nil {
				log.Printf("[suggest] animation rejected element=%s attribute=%s: %v", element.ID, attribute, err)
			}
		}
	}

	return element.ID, nil
}

// elementFor builds the element payload for a plan, centered on the
// canvas. Star and polygon shapes become path elements with generated
// path data.
func elementFor(plan sketch.Plan, cx, cy float64) (string, scene.Properties) {
	switch plan.Shape {
	case sketch.ShapeCircle:
		return "circle", scene.Properties{"cx": cx, "cy": cy, "r": 50.0, "fill": plan.Color}
	case sketch.ShapeText:
		return "text", scene.Properties{"x": cx, "y": cy, "text": plan.Text, "font-size": 24.0, "fill": plan.Color}
	case sketch.ShapeStar:
		points, _ := svg.StarPoints(cx, cy, 80, 32, 5)
		return "path", scene.Properties{"d": svg.PathData(points) + " Z", "fill": plan.Color}
	case sketch.ShapePolygon:
		points, _ := svg.PolygonPoints(cx, cy, 70, 6)
		return "path", scene.Properties{"d": svg.PathData(points) + " Z", "fill": plan.Color}
	default:
		return "rect", scene.Properties{"x": cx - 60, "y": cy - 40, "width": 120.0, "height": 80.0, "fill": plan.Color}
	}
}

// animationFor picks an attribute and value range expressing the plan's
// motion on the concrete element type.
func animationFor(plan sketch.Plan, element *scene.Element, cx, cy float64) (attribute string, from, to any, duration float64) {
	switch plan.Motion {
	case sketch.MotionPulse:
		switch element.Type {
		case scene.Circle:
			return "r", 50.0, 70.0, 2.0
		case scene.Rect:
			return "width", 120.0, 160.0, 2.0
		case scene.Text:
			return "font-size", 24.0, 32.0, 2.0
		default:
			return "opacity", 1.0, 0.6, 2.0
		}
	case sketch.MotionMove:
		if element.Type == scene.Circle {
			return "cx", cx, cx + 120, 3.0
		}
		if element.Type == scene.Rect || element.Type == scene.Text {
			return "x", element.Properties["x"], toFloat(element.Properties["x"]) + 120, 3.0
		}
		return "opacity", 1.0, 1.0, 3.0
	case sketch.MotionBounce:
		if element.Type == scene.Circle {
			return "cy", cy, cy - 80, 1.0
		}
		if element.Type == scene.Rect || element.Type == scene.Text {
			return "y", element.Properties["y"], toFloat(element.Properties["y"]) - 80, 1.0
		}
		return "opacity", 1.0, 1.0, 1.0
	case sketch.MotionFade:
		return "opacity", 1.0, 0.0, 2.0
	case sketch.MotionSpin:
		center := fmt.Sprintf("%v %v", cx, cy)
		return "transform", "rotate(0 " + center + ")", "rotate(360 " + center + ")", 4.0
	case sketch.MotionColor:
		lighter, err := svg.InterpolateColor(plan.Color, "#ffffff", 0.6)
		if err != nil {
			lighter = plan.Color
		}
		return "fill", plan.Color, lighter, 2.0
	}
	return "", nil, nil, 0
}

func toFloat(value any) float64 {
	f, _ := value.(float64)
	return f
}

type plannerPayload struct {
	Shape  string `json:"shape"`
	Color  string `json:"color"`
	Text   string `json:"text"`
	Motion string `json:"motion"`
}

// parsePlannerOutput extracts the JSON object from the model response.
func parsePlannerOutput(content string) (*plannerPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &plannerPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// normalizePlan maps the planner payload onto the heuristic plan type,
// falling back per field when the model returned something unusable.
func normalizePlan(payload *plannerPayload, promptText string) sketch.Plan {
	fallback := sketch.Parse(promptText)

	plan := fallback
	switch sketch.ShapeKind(strings.ToLower(payload.Shape)) {
	case sketch.ShapeRect, sketch.ShapeCircle, sketch.ShapeText, sketch.ShapeStar, sketch.ShapePolygon:
		plan.Shape = sketch.ShapeKind(strings.ToLower(payload.Shape))
	}
	if normalized, err := svg.ValidateColor(payload.Color); err == nil {
		plan.Color = normalized
	}
	if text := strings.TrimSpace(payload.Text); text != "" {
		plan.Text = text
	}
	switch sketch.Motion(strings.ToLower(payload.Motion)) {
	case sketch.MotionMove, sketch.MotionSpin, sketch.MotionPulse, sketch.MotionBounce, sketch.MotionFade, sketch.MotionColor:
		plan.Motion = sketch.Motion(strings.ToLower(payload.Motion))
	case sketch.MotionNone:
		if strings.TrimSpace(payload.Motion) == "" || strings.EqualFold(payload.Motion, "none") {
			plan.Motion = sketch.MotionNone
		}
	}
	return plan
}

const plannerSystemPrompt = "You plan a single SVG scene change from a drawing instruction. Return only a JSON object with these fields: shape (one of rect/circle/text/star/polygon), color (a hex color like #e74c3c), text (the text content, empty unless shape is text), motion (one of move/spin/pulse/bounce/fade/color, or empty for a static shape). No other output."

const plannerUserPrompt = "Instruction:\n{prompt}\n\nReturn the JSON object."
