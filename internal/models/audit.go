package models

import "time"

// FormFields are the profile answers extracted from a signup submission.
type FormFields struct {
	FirstName               *string `json:"first_name,omitempty"`
	Phone                   *string `json:"phone,omitempty"`
	FirstTime               *string `json:"first_time,omitempty"`
	Age                     *string `json:"age,omitempty"`
	Gender                  *string `json:"gender,omitempty"`
	Country                 *string `json:"country,omitempty"`
	Background              *string `json:"background,omitempty"`
	CreativeExpressionScore *int    `json:"creative_expression_score,omitempty"`
	SocialAnxietyScore      *int    `json:"social_anxiety_score,omitempty"`
	EmotionalIntuitionScore *int    `json:"emotional_intuition_score,omitempty"`
	SolitaryPreferenceScore *int    `json:"solitary_preference_score,omitempty"`
	InterestsActiveOutdoors *string `json:"interests_active_outdoors,omitempty"`
	InterestsCreativity     *string `json:"interests_creativity,omitempty"`
	InterestsIntellectual   *string `json:"interests_intellectual,omitempty"`
	InterestsFoodSocial     *string `json:"interests_food_social,omitempty"`
	InterestsGames          *string `json:"interests_games,omitempty"`
	InterestsMindSelf       *string `json:"interests_mind_self,omitempty"`
	MBTI                    *string `json:"mbti,omitempty"`
	OptionalNote            *string `json:"optional_note,omitempty"`
}

// SignupAudit is an append-only record of one processed signup submission.
type SignupAudit struct {
	ID           int64     `json:"id"`
	ReceivedAt   time.Time `json:"received_at"`
	SubmissionID *string   `json:"submission_id,omitempty"`
	BodyHash     string    `json:"body_hash"`
	Phone        *string   `json:"phone,omitempty"` // canonical when it normalized, raw otherwise
	FormFields
}

// PaymentAudit is an append-only record of one processed payment submission.
type PaymentAudit struct {
	ID           int64     `json:"id"`
	ArrivedAt    time.Time `json:"arrived_at"`
	SubmissionID *string   `json:"submission_id,omitempty"`
	BodyHash     string    `json:"body_hash"`
	Phone        *string   `json:"phone,omitempty"`
	Status       *string   `json:"status,omitempty"`
	Recognized   bool      `json:"recognized"` // phone appeared in an earlier signup audit
}
