package generator

import (
	"strings"
	"testing"

	"github.com/adaptlearn/backend/internal/models"
)

func TestAllSubjectsHaveTopics(t *testing.T) {
	for subject := range models.ValidSubjects {
		for band := range models.ValidGradeBands {
			topics := GetSubjectTopics(subject, band)
			if len(topics) == 0 {
				t.Errorf("subject %q band %q has no topic strands defined", subject, band)
			}
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt()

	required := []string{"K-12", "4 choices", "A through D", "JSON", "STEM", "ANSWER CHOICES", "DIFFICULTY", "misconception"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("system prompt missing keyword %q", keyword)
		}
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt(models.SubjectMath, models.BandMiddle, 6.5, 6)

	required := []string{"6", "math", "middle", "6.5", "correct_answer_id", "choices", "misconception"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("user prompt missing keyword %q", keyword)
		}
	}

	// Should contain at least one middle-band math strand
	if !strings.Contains(prompt, "ratios and proportional reasoning") {
		t.Error("user prompt should contain a middle school math strand")
	}

	// Should contain correct answer rules
	if !strings.Contains(prompt, "CORRECT ANSWER RULES") {
		t.Error("user prompt should contain correct answer rules section")
	}

	// Should contain wrong answer construction rules
	if !strings.Contains(prompt, "WRONG ANSWER CONSTRUCTION") {
		t.Error("user prompt should contain wrong answer construction section")
	}
}

func TestBuildUserPromptDisplaysSubject(t *testing.T) {
	prompt := BuildUserPrompt(models.SubjectLanguage, models.BandElementary, 2.0, 4)

	// Underscored identifiers should be humanized for the model
	if !strings.Contains(prompt, "language arts") {
		t.Error("user prompt should humanize language_arts to 'language arts'")
	}
	if strings.Contains(prompt, "language_arts") {
		t.Error("user prompt should not leak the raw subject identifier")
	}
}

func TestAllSubjectsHaveCorrectAnswerRules(t *testing.T) {
	for subject := range models.ValidSubjects {
		rules := GetCorrectAnswerRules(subject)
		if rules == "" {
			t.Errorf("subject %q has no correct answer rules", subject)
		}
	}
}

func TestAllSubjectsHaveMisconceptionRules(t *testing.T) {
	for subject := range models.ValidSubjects {
		rules := GetMisconceptionRules(subject)
		if rules == "" {
			t.Errorf("subject %q has no misconception rules", subject)
		}
	}
}

func TestCorrectAnswerRulesInjectedIntoPrompt(t *testing.T) {
	for subject := range models.ValidSubjects {
		prompt := BuildUserPrompt(subject, models.BandMiddle, 5.0, 3)
		rules := GetCorrectAnswerRules(subject)

		// The rules should appear in the prompt (at least the first line)
		firstLine := strings.Split(strings.TrimSpace(rules), "\n")[0]
		if !strings.Contains(prompt, firstLine) {
			t.Errorf("subject %q: correct answer rules not found in user prompt", subject)
		}
	}
}

func TestMisconceptionRulesInjectedIntoPrompt(t *testing.T) {
	for subject := range models.ValidSubjects {
		prompt := BuildUserPrompt(subject, models.BandHigh, 8.0, 3)
		rules := GetMisconceptionRules(subject)

		firstLine := strings.Split(strings.TrimSpace(rules), "\n")[0]
		if !strings.Contains(prompt, firstLine) {
			t.Errorf("subject %q: misconception rules not found in user prompt", subject)
		}
	}
}

func TestSubjectDisplayName(t *testing.T) {
	tests := []struct {
		subject models.Subject
		want    string
	}{
		{models.SubjectMath, "math"},
		{models.SubjectLanguage, "language arts"},
		{models.SubjectSocial, "social studies"},
	}

	for _, tt := range tests {
		if got := SubjectDisplayName(tt.subject); got != tt.want {
			t.Errorf("SubjectDisplayName(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
