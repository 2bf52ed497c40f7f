package generator

import (
	"fmt"
	"strings"

	"github.com/adaptlearn/backend/internal/models"
)

var subjectTopics = map[models.Subject]map[models.GradeBand][]string{
	models.SubjectMath: {
		models.BandElementary: {
			"place value and rounding",
			"multi-digit addition and subtraction",
			"multiplication and division facts",
			"fractions on a number line",
			"perimeter and area of rectangles",
			"telling time and elapsed time",
		},
		models.BandMiddle: {
			"ratios and proportional reasoning",
			"operations with negative numbers",
			"one-step and two-step equations",
			"percent increase and decrease",
			"area and volume of composite figures",
			"reading data displays and computing averages",
		},
		models.BandHigh: {
			"linear equations and inequalities",
			"systems of two linear equations",
			"quadratic functions and factoring",
			"exponential growth and decay",
			"right-triangle trigonometry",
			"probability of compound events",
		},
	},
	models.SubjectReading: {
		models.BandElementary: {
			"identifying the main idea of a short passage",
			"sequencing events in a story",
			"character feelings and motivations",
			"vocabulary from context clues",
			"distinguishing fact from opinion",
		},
		models.BandMiddle: {
			"central idea and supporting details",
			"inference from textual evidence",
			"author's purpose and point of view",
			"figurative language and word choice",
			"comparing accounts of the same event",
		},
		models.BandHigh: {
			"theme development across a passage",
			"rhetorical strategies and their effect",
			"tone and its shifts within a text",
			"evaluating an argument's evidence",
			"synthesis across paired excerpts",
		},
	},
	models.SubjectScience: {
		models.BandElementary: {
			"plant and animal life cycles",
			"states of matter and simple changes",
			"weather patterns and the water cycle",
			"habitats and food chains",
			"forces, pushes, and pulls",
		},
		models.BandMiddle: {
			"cells and body systems",
			"photosynthesis and energy flow",
			"the rock cycle and plate tectonics",
			"atoms, elements, and compounds",
			"interpreting simple experiments and variables",
		},
		models.BandHigh: {
			"chemical reactions and balancing equations",
			"genetics and inheritance patterns",
			"Newton's laws and motion graphs",
			"energy transfer and thermodynamics",
			"experimental design and error analysis",
		},
	},
	models.SubjectLanguage: {
		models.BandElementary: {
			"complete sentences and fragments",
			"subject-verb agreement",
			"capitalization and end punctuation",
			"common and proper nouns",
			"verb tenses in simple sentences",
		},
		models.BandMiddle: {
			"commas in compound and complex sentences",
			"pronoun-antecedent agreement",
			"combining sentences without run-ons",
			"frequently confused words",
			"active and passive voice",
		},
		models.BandHigh: {
			"parallel structure in lists and comparisons",
			"modifier placement and dangling modifiers",
			"semicolons, colons, and dashes",
			"concision and redundancy",
			"verb mood and formal register",
		},
	},
	models.SubjectSocial: {
		models.BandElementary: {
			"communities and the goods they trade",
			"maps, globes, and cardinal directions",
			"national symbols and holidays",
			"rules, laws, and why communities have them",
			"timelines of local history",
		},
		models.BandMiddle: {
			"branches of government and their powers",
			"ancient civilizations and their innovations",
			"reading historical maps and primary sources",
			"supply, demand, and scarcity",
			"geography's influence on settlement",
		},
		models.BandHigh: {
			"constitutional principles and landmark cases",
			"causes and effects of major conflicts",
			"industrialization and economic change",
			"civic participation and electoral systems",
			"analyzing competing historical interpretations",
		},
	},
}

var subjectCorrectAnswerRules = map[models.Subject]string{
	models.SubjectMath: `
CORRECT ANSWER RULES (Math):
- The correct answer must be the unique, exactly computable result of the problem
- Arithmetic must work out cleanly for the grade band — no calculator-dependent values below high school
- Word problems must contain every number needed and no contradictory information
- Units in the correct answer must match the units asked for in the stem`,

	models.SubjectReading: `
CORRECT ANSWER RULES (Reading):
- The correct answer must be supported by the excerpt in the stem — never by outside knowledge
- For main idea items it must cover the whole excerpt, not one detail
- For inference items it must follow from the text without being stated verbatim
- It should be carefully worded and modest in scope, not the most dramatic option`,

	models.SubjectScience: `
CORRECT ANSWER RULES (Science):
- The correct answer must reflect accepted science at the depth of the grade band
- For data or experiment items it must follow from the described setup, not from general knowledge
- It must not be correct only under unstated special conditions
- Avoid answers that are true but do not answer the question asked`,

	models.SubjectLanguage: `
CORRECT ANSWER RULES (Language Arts):
- The correct answer must be the only grammatically standard option among the four
- Apply one rule per question — do not stack multiple error types in a single item
- The corrected form must preserve the sentence's original meaning
- Style preferences that are not rules (for example optional commas) must not decide the answer`,

	models.SubjectSocial: `
CORRECT ANSWER RULES (Social Studies):
- The correct answer must be factually accurate and dated or attributed correctly
- For source-based items it must follow from the quoted source, not from the topic in general
- Cause-and-effect answers must state the direction of causation the record supports
- Avoid answers that are merely associated with the topic without answering the question`,
}

var subjectMisconceptionRules = map[models.Subject]string{
	models.SubjectMath: `
WRONG ANSWER CONSTRUCTION (Math):
- Each distractor must be the exact result of one specific, common student error
- Typical misconception labels: dropped_negative, place_value_slip, inverted_operation, off_by_one, unit_confusion, partial_answer, added_instead_of_multiplied
- Never use random numbers — a student who makes the named mistake must land exactly on that choice
- Keep all four choices in the same format and magnitude range`,

	models.SubjectReading: `
WRONG ANSWER CONSTRUCTION (Reading):
- Each distractor must fail for one nameable reason tied to the excerpt
- Typical misconception labels: too_narrow, too_broad, out_of_scope, contradicts_text, detail_not_main_idea, plausible_but_unsupported
- At least one distractor should quote or echo the text while misusing it
- Distractors must not be absurd — each should tempt a student who read carelessly`,

	models.SubjectScience: `
WRONG ANSWER CONSTRUCTION (Science):
- Each distractor must encode a documented student misconception where one exists
- Typical misconception labels: reversed_cause, confuses_related_terms, everyday_meaning, overgeneralization, wrong_variable, scale_confusion
- For data items, distractors should misread the table or graph in a specific way
- Do not make distractors wrong by being nonsense — they must be scientifically coherent errors`,

	models.SubjectLanguage: `
WRONG ANSWER CONSTRUCTION (Language Arts):
- Each distractor must break exactly one identifiable convention
- Typical misconception labels: comma_splice, fragment, agreement_error, wrong_homophone, misplaced_modifier, tense_shift
- One distractor should sound natural in speech but be nonstandard in writing
- Do not include two choices that are both defensible under standard usage`,

	models.SubjectSocial: `
WRONG ANSWER CONSTRUCTION (Social Studies):
- Each distractor must be wrong in one specific, checkable way
- Typical misconception labels: wrong_era, wrong_region, reversed_cause, confuses_similar_figures, anachronism, overgeneralization
- Distractors should name real people, places, or events — just the wrong ones for this question
- Avoid distractors a student could eliminate without any content knowledge`,
}

var bandAudience = map[models.GradeBand]string{
	models.BandElementary: "grades 1-5: short sentences, everyday vocabulary, concrete situations, numbers sized for mental arithmetic",
	models.BandMiddle:     "grades 6-8: two- to three-sentence stems, subject vocabulary introduced in context, multi-step but guided reasoning",
	models.BandHigh:       "grades 9-12: compact academic prose, full subject vocabulary, multi-step reasoning without scaffolding",
}

func SystemPrompt() string {
	return `You are an experienced K-12 assessment item writer. You have spent years writing multiple-choice questions for state assessments and adaptive learning platforms, and your items are routinely approved by content review panels on the first pass.

STEM CONSTRUCTION:
- Each stem asks exactly one thing and can be answered from the stem alone
- Reading and language items embed the excerpt or sentence under test inside the stem
- No trick wording: difficulty must come from the content, never from parsing the question
- Negative stems ("which is NOT...") are forbidden below the high band and discouraged everywhere

ANSWER CHOICES:
- Exactly 4 choices labeled A through D
- Exactly ONE correct answer
- The 3 wrong answers must each be wrong for a specific, identifiable reason
- Wrong answers must be genuinely tempting — each one is the landing spot of a real student mistake
- Choices must be parallel in form and similar in length so the correct one is not visually obvious

EXPLANATIONS:
- For the correct answer: 1-3 sentences showing the reasoning or computation a student should use
- For each wrong answer: 1-2 sentences naming the exact mistake that leads there, and label its misconception
- Explanations are read by students after answering, so write them in an encouraging, instructional register

DIFFICULTY CALIBRATION:
Difficulty is a number from 0 to 10 where a student whose ability equals the difficulty answers correctly about half the time.
- 0-2: single-step items on the band's entry skills; distractors are loosely tempting
- 3-4: single-step items with one strong distractor, or gentle two-step items
- 5-6: two-step items at the band's core skills; two strong distractors
- 7-8: multi-step items combining two skills; distractors track precise mistakes
- 9-10: the band's hardest material, requiring transfer to an unfamiliar context; three strong distractors

You must respond with valid JSON only. No markdown, no explanation outside the JSON.`
}

func BuildUserPrompt(subject models.Subject, band models.GradeBand, difficulty float64, count int) string {
	topics := subjectTopics[subject][band]
	var topicLines string
	for _, t := range topics {
		topicLines += fmt.Sprintf("- %s\n", t)
	}

	correctRules := subjectCorrectAnswerRules[subject]
	misconceptionRules := subjectMisconceptionRules[subject]

	return fmt.Sprintf(`Generate exactly %d multiple-choice questions.

Subject: %s
Grade band: %s (%s)
Target difficulty: %.1f on the 0-10 scale

Draw each question from a different one of these strands:
%s
%s

%s

Respond with this exact JSON structure:
{
  "questions": [
    {
      "stem": "...",
      "choices": [
        {"id": "A", "text": "...", "explanation": "...", "misconception": "partial_answer"},
        {"id": "B", "text": "...", "explanation": "...", "misconception": null},
        {"id": "C", "text": "...", "explanation": "...", "misconception": "inverted_operation"},
        {"id": "D", "text": "...", "explanation": "...", "misconception": "off_by_one"}
      ],
      "correct_answer_id": "B",
      "explanation": "..."
    }
  ]
}

Requirements:
- Each question must use a DIFFERENT strand or context — no two questions in the same batch about the same scenario
- Vary the position of the correct answer across A-D — do not cluster correct answers
- For the correct answer choice, set "misconception" to null
- For each wrong answer choice, set "misconception" to the label of the specific mistake that produces it`,
		count, SubjectDisplayName(subject), string(band), bandAudience[band], difficulty, topicLines, correctRules, misconceptionRules)
}

// GetSubjectTopics returns the topic strands for a subject and grade band.
func GetSubjectTopics(subject models.Subject, band models.GradeBand) []string {
	return subjectTopics[subject][band]
}

// GetCorrectAnswerRules returns the correct answer rules for a subject.
func GetCorrectAnswerRules(subject models.Subject) string {
	return subjectCorrectAnswerRules[subject]
}

// GetMisconceptionRules returns the wrong answer construction rules for a subject.
func GetMisconceptionRules(subject models.Subject) string {
	return subjectMisconceptionRules[subject]
}

// SubjectDisplayName returns a human-readable name for a subject.
func SubjectDisplayName(subject models.Subject) string {
	return strings.ReplaceAll(string(subject), "_", " ")
}
