package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"bookmuse/internal/types"
)

// reviewExcerptLen caps how much of a reader's review goes into the
// profiling prompt.
const reviewExcerptLen = 120

// descriptionExcerptLen caps candidate descriptions in the ranking prompt.
const descriptionExcerptLen = 150

const profileSystemPrompt = `You are a literary analyst helping to understand a reader's taste.
You will receive a list of books a person has read, with their personal ratings (1-5 stars).
Analyze the patterns and return a JSON object with these exact keys:
{
  "summary": "2-3 sentence human-readable description of their taste",
  "genres": ["list of genres/subgenres they enjoy"],
  "themes": ["recurring themes: e.g. found family, political intrigue, grief, coming of age"],
  "writing_styles": ["preferences: e.g. lyrical prose, fast-paced plotting, unreliable narrator"],
  "loved_authors": ["authors they rated highly (4-5 stars)"],
  "disliked_elements": ["patterns from low-rated books (1-2 stars)"],
  "search_queries": ["4-6 search queries to find similar books, using subject: and inauthor: prefixes. At least half should target authors NOT in the user's read list."]
}
If a genre mood is provided in the user message, heavily weight that genre in search_queries.
Pay particular attention to 4-5 star books when forming the taste profile.
Only return valid JSON - no markdown fences, no text before or after.`

const rankingSystemPrompt = `You are a personal book recommender.
You will receive:
1. A reader's taste profile (JSON)
2. A list of candidate books (JSON array) from a book catalog
3. The target count of recommendations

Return a JSON array of exactly the target count of most suitable books, ordered best-to-worst match.
Each object must have these exact keys:
{
  "id": "...",
  "genre": "e.g. Hard Science Fiction, Gothic Fantasy, Cozy Mystery",
  "reason": "2-3 sentence explanation referencing specific books from the user's history by title",
  "predicted_rating": 4.2,
  "is_new_author": true
}
Rules:
- Only include books from the candidates list (no hallucinated titles)
- At least 2 books MUST be by authors NOT in the user's loved_authors or read list (mark these is_new_author: true)
- Reason must be personalized and cite specific titles from the user's reading history
- predicted_rating is a float 1.0-5.0 estimating how much this reader will enjoy it
Only return valid JSON array - no markdown fences, no text before or after.`

// Used when no catalog API key is configured: the model recommends books
// from its own knowledge.
const knowledgeSystemPrompt = `You are a personal book recommender.
You will receive a reader's taste profile (JSON) and a target count.

Since no external book database is available, recommend real, well-known books entirely from your knowledge.
Return a JSON array of exactly the target count of books, ordered best-to-worst match.
Each object must have these exact keys:
{
  "title": "exact book title",
  "author": "author full name",
  "genre": "e.g. Hard Science Fiction, Gothic Fantasy, Cozy Mystery",
  "description": "2-3 sentence plot summary",
  "reason": "2-3 sentence explanation referencing specific books from the user's history by title",
  "predicted_rating": 4.2,
  "is_new_author": true
}
Rules:
- Only recommend real published books you are confident exist
- At least 2 must be by authors NOT in the user's loved_authors or read list (mark is_new_author: true)
- Do NOT recommend any book already in the user's read list
- Reason must be personalized and cite specific titles from the user's history
- predicted_rating is a float 1.0-5.0 estimating enjoyment
Only return valid JSON array - no markdown fences, no text before or after.`

// buildProfilePrompt enumerates the reader's history for the profiling call.
func buildProfilePrompt(books []types.RatedBook, mood string) string {
	var lines []string
	for _, b := range books {
		line := fmt.Sprintf("- %s by %s [%d/5]", b.Title, b.Author, b.Rating)
		if b.Review != "" {
			excerpt := b.Review
			if len(excerpt) > reviewExcerptLen {
				excerpt = excerpt[:reviewExcerptLen]
			}
			line += fmt.Sprintf(" | Review snippet: %q", excerpt+"...")
		}
		if b.Shelves != "" {
			line += " | Shelves: " + b.Shelves
		}
		lines = append(lines, line)
	}

	prompt := "Books I have read:\n" + strings.Join(lines, "\n")
	if mood != "" {
		prompt += "\n\nGenre mood: The user currently feels like reading: " + mood
	}
	return prompt
}

// candidateSummary is the trimmed-down candidate shape sent to the ranker.
type candidateSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// buildRankingPrompt packages the profile and candidate summaries for the
// ranking call.
func buildRankingPrompt(profile types.TasteProfile, candidates []types.CandidateBook, count int) string {
	summaries := make([]candidateSummary, 0, len(candidates))
	for _, c := range candidates {
		desc := c.Description
		if len(desc) > descriptionExcerptLen {
			desc = desc[:descriptionExcerptLen]
		}
		summaries = append(summaries, candidateSummary{
			ID:          c.ID,
			Title:       c.Title,
			Author:      c.Author,
			Description: desc,
			Categories:  c.Categories,
		})
	}

	profileJSON, _ := json.MarshalIndent(profile, "", "  ")
	candidatesJSON, _ := json.MarshalIndent(summaries, "", "  ")
	return fmt.Sprintf("Reader preferences:\n%s\n\nTarget recommendation count: %d\n\nCandidate books:\n%s",
		profileJSON, count, candidatesJSON)
}

// buildKnowledgePrompt packages the profile and exclusion list for the
// knowledge-only call.
func buildKnowledgePrompt(profile types.TasteProfile, books []types.RatedBook, count int) string {
	var exclusions []string
	for _, b := range books {
		exclusions = append(exclusions, fmt.Sprintf("- %s by %s", b.Title, b.Author))
	}

	profileJSON, _ := json.MarshalIndent(profile, "", "  ")
	return fmt.Sprintf("Reader preferences:\n%s\n\nBooks to EXCLUDE (already read):\n%s\n\nTarget recommendation count: %d",
		profileJSON, strings.Join(exclusions, "\n"), count)
}
