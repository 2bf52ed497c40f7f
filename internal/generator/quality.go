package generator

import "github.com/adaptlearn/backend/internal/models"

// StructuralScore holds the individual structural compliance checks.
type StructuralScore struct {
	StemLengthOK           bool
	AllChoicesInRange      bool
	AllExplanationsPresent bool
	CorrectAnswerDistribOK bool
}

// ComputeStructuralScore evaluates structural compliance for a single question.
func ComputeStructuralScore(q GeneratedQuestion) StructuralScore {
	stemLen := len(q.Stem)
	stemOK := stemLen >= 15 && stemLen <= 1200

	choicesOK := true
	explOK := true
	for _, c := range q.Choices {
		textLen := len(c.Text)
		if textLen == 0 || textLen > 300 {
			choicesOK = false
		}
		if c.Explanation == "" {
			explOK = false
		}
	}

	return StructuralScore{
		StemLengthOK:           stemOK,
		AllChoicesInRange:      choicesOK,
		AllExplanationsPresent: explOK,
		CorrectAnswerDistribOK: true, // Set externally based on batch-level analysis
	}
}

// ComputeQualityScore calculates a composite quality score (0.0-1.0).
//
// Formula: verification_confidence * 0.40 + adversarial_cleanliness * 0.35 + structural * 0.25
func ComputeQualityScore(vr *ValidationResult, ar *AdversarialResult, structural StructuralScore) float64 {
	// Verification confidence score
	verificationScore := 0.4 // default low if no validation
	if vr != nil {
		switch vr.Confidence {
		case "high":
			verificationScore = 1.0
		case "medium":
			verificationScore = 0.7
		case "low":
			verificationScore = 0.4
		}
	}

	// Adversarial cleanliness score
	adversarialScore := 1.0 // default clean if no adversarial check
	if ar != nil && len(ar.Challenges) > 0 {
		moderateCount := 0
		for _, c := range ar.Challenges {
			switch c.DefenseStrength {
			case "strong":
				adversarialScore = 0.0
			case "moderate":
				moderateCount++
			}
		}
		if adversarialScore > 0 {
			if moderateCount > 1 {
				adversarialScore = 0.3
			} else if moderateCount == 1 {
				adversarialScore = 0.6
			}
		}
	}

	// Structural compliance score (4 checks, each worth 0.25)
	structuralScore := 0.0
	if structural.StemLengthOK {
		structuralScore += 0.25
	}
	if structural.AllChoicesInRange {
		structuralScore += 0.25
	}
	if structural.AllExplanationsPresent {
		structuralScore += 0.25
	}
	if structural.CorrectAnswerDistribOK {
		structuralScore += 0.25
	}

	return verificationScore*0.40 + adversarialScore*0.35 + structuralScore*0.25
}

// ClassifyQuality maps a quality score onto a review status. Below 0.50 the
// question is rejected outright; 0.50-0.70 is stored but held for human
// review; above 0.70 it enters the bank as servable.
func ClassifyQuality(score float64) models.ReviewStatus {
	if score < 0.50 {
		return models.ReviewRejected
	}
	if score <= 0.70 {
		return models.ReviewFlagged
	}
	return models.ReviewUnreviewed
}
