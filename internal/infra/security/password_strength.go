package security

import (
	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// StrengthResult carries the heuristic entropy score for a password.
// Score 0 is a hard validation failure; 1-4 are acceptable, with the UI free
// to warn on low values.
type StrengthResult struct {
	Score    int
	Feedback string
}

// ScorePassword estimates password strength with zxcvbn. The userInputs are
// account-specific strings (username, email) penalized as dictionary words.
func ScorePassword(password string, userInputs ...string) StrengthResult {
	if password == "" {
		return StrengthResult{Score: 0, Feedback: "password is required"}
	}

	result := zxcvbn.PasswordStrength(password, userInputs)

	feedback := ""
	if result.Score == 0 {
		feedback = "password is too guessable; add more words or characters"
		if len(result.MatchSequence) > 0 {
			feedback = "password matches common patterns; choose something less predictable"
		}
	}

	return StrengthResult{Score: result.Score, Feedback: feedback}
}
