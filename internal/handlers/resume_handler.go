package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/talenthub/backend/internal/ats"
	"github.com/talenthub/backend/internal/metrics"
	"github.com/talenthub/backend/internal/richtext"
)

const (
	maxResumeBytes     = 200 * 1024
	maxJobKeywordCount = 100
)

type ResumeHandler struct {
	scorer *ats.Scorer
}

func NewResumeHandler(scorer *ats.Scorer) *ResumeHandler {
	return &ResumeHandler{scorer: scorer}
}

type analyzeResumeRequest struct {
	Text           string   `json:"text"`
	HTML           string   `json:"html"`
	JobKeywords    []string `json:"job_keywords"`
	JobDescription string   `json:"job_description"`
}

// Analyze scores a resume given as plain text or as editor HTML. Keywords
// default to the ones found in job_description.
func (h *ResumeHandler) Analyze(c *fiber.Ctx) error {
	var req analyzeResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Text)+len(req.HTML)+len(req.JobDescription) > maxResumeBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "resume exceeds 200KB limit"})
	}

	text := req.Text
	if strings.TrimSpace(text) == "" && strings.TrimSpace(req.HTML) != "" {
		text = richtext.PlainText(req.HTML)
	}
	if strings.TrimSpace(text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text or html is required"})
	}

	keywords := make([]string, 0, len(req.JobKeywords))
	for _, keyword := range req.JobKeywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	if len(keywords) == 0 && strings.TrimSpace(req.JobDescription) != "" {
		keywords = ats.ExtractKeywords(req.JobDescription)
	}
	if len(keywords) > maxJobKeywordCount {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "at most 100 job keywords are allowed"})
	}

	result := h.scorer.Analyze(text, keywords)
	metrics.ResumeAnalyses.Inc()

	return c.JSON(result)
}

func (h *ResumeHandler) GetConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"config": h.scorer.Config()})
}
