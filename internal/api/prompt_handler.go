package api

import (
	"net/http"

	"github.com/phrazzld/carousel-api/internal/api/shared"
	"github.com/phrazzld/carousel-api/internal/prompt"
)

// PreviewPrompt handles POST /api/prompts/preview. It classifies the topic
// and returns the prompt a carousel generation would send, without calling
// a provider.
func PreviewPrompt(w http.ResponseWriter, r *http.Request) {
	if _, ok := getUserIDFromContext(r); !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req PromptPreviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opts := req.Options.WithDefaults()
	promptReq := prompt.RequestFromOptions(req.Topic, opts)
	tmpl := prompt.TemplateFor(promptReq.ContentType)

	shared.RespondWithJSON(w, r, http.StatusOK, PromptPreviewResponse{
		ContentType:  string(promptReq.ContentType),
		TemplateName: tmpl.Name,
		Structure:    append([]string(nil), tmpl.Structure...),
		Prompt:       prompt.Compose(promptReq),
		CTAs:         prompt.RecommendCTAs(promptReq.ContentType),
		Format:       opts.Platform.Format(),
	})
}
