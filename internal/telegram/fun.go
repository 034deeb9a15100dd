package telegram

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// jokeSources are public no-auth joke APIs. Each returns a different JSON
// shape, so the decoder probes the known fields.
var jokeSources = []string{
	"https://official-joke-api.appspot.com/random_joke",
	"https://v2.jokeapi.dev/joke/Any?type=single&safe-mode",
	"https://icanhazdadjoke.com/",
}

var jokeClient = &http.Client{Timeout: 3 * time.Second}

// handleJoke fetches a joke from a random source, falling through the list
// when a source is down.
func (s *BotService) handleJoke(chatID int64) {
	start := rand.Intn(len(jokeSources))
	for i := 0; i < len(jokeSources); i++ {
		url := jokeSources[(start+i)%len(jokeSources)]
		joke, err := fetchJoke(url)
		if err != nil {
			log.Printf("WARN: Joke source %s failed: %v", url, err)
			continue
		}
		s.reply(chatID, joke)
		return
	}
	s.reply(chatID, "😶 All my joke sources are down. That is the joke.")
}

func fetchJoke(url string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := jokeClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Setup     string `json:"setup"`
		Punchline string `json:"punchline"`
		Joke      string `json:"joke"`
		Delivery  string `json:"delivery"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	switch {
	case payload.Setup != "" && payload.Punchline != "":
		return payload.Setup + "\n\n" + payload.Punchline, nil
	case payload.Setup != "" && payload.Delivery != "":
		return payload.Setup + "\n\n" + payload.Delivery, nil
	case payload.Joke != "":
		return payload.Joke, nil
	default:
		return "", fmt.Errorf("no joke in response from %s", url)
	}
}

// handlePoll creates a non-anonymous poll. Quoted arguments let the question
// and options contain spaces.
func (s *BotService) handlePoll(chatID int64, args string) {
	parts := splitQuoted(args)
	if len(parts) < 3 {
		s.reply(chatID, `Usage: /poll "Question" "Option 1" "Option 2" ... (2 to 10 options, quotes optional for single words)`)
		return
	}
	question, options := parts[0], parts[1:]
	if len(options) > 10 {
		s.reply(chatID, "Polls can have at most 10 options.")
		return
	}

	poll := tgbotapi.NewPoll(chatID, question, options...)
	poll.IsAnonymous = false
	if _, err := s.Client.API().Send(poll); err != nil {
		log.Printf("ERROR: Failed to create poll in chat %d: %v", chatID, err)
		s.reply(chatID, "Could not create the poll.")
	}
}

// splitQuoted splits on whitespace while keeping double-quoted runs together.
// Quotes are stripped from the result; an unterminated quote runs to the end.
func splitQuoted(s string) []string {
	var (
		parts    []string
		current  strings.Builder
		inQuotes bool
		started  bool
	)
	flush := func() {
		if started {
			parts = append(parts, current.String())
			current.Reset()
			started = false
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()
	return parts
}
