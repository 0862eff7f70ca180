package tally

import "github.com/stranger-beers/ingestion/internal/models"

// IdentityMap lists, per logical attribute, the field keys or labels to try in order.
// Changing a form in Tally only needs a new entry here.
type IdentityMap struct {
	RegistrationID []string
	EventID        []string
	Phone          []string
	Email          []string
	FullName       []string
}

// SignupFieldMap maps the signup form. registration_id and event_id are hidden fields set by URL parameters.
var SignupFieldMap = IdentityMap{
	RegistrationID: []string{"registration_id", "registrationId", "Registration ID"},
	EventID:        []string{"event_id", "eventId", "Event ID"},
	Phone:          []string{"phone", "Phone", "phone_number", "Phone Number", "Mobile"},
	Email:          []string{"email", "Email", "email_address", "Email Address"},
	FullName:       []string{"full_name", "name", "Name", "Full Name", "Your Name"},
}

// PaymentFieldMap maps the payment form.
var PaymentFieldMap = IdentityMap{
	RegistrationID: []string{"registration_id", "registrationId", "Registration ID"},
	EventID:        []string{"event_id", "eventId", "Event ID"},
	Phone:          []string{"phone", "Phone", "phone_number", "Phone Number", "Mobile", "What's the phone number you signed up with?"},
	Email:          []string{"email", "Email", "email_address", "Email Address", "Reserve your drink! (email)"},
}

// ProfileEntry maps one profile attribute. Exactly one of Text or Score is set.
type ProfileEntry struct {
	Name       string
	Candidates []string
	Text       func(*models.FormFields, string)
	Score      func(*models.FormFields, int)
}

func textEntry(name string, set func(*models.FormFields, *string), candidates ...string) ProfileEntry {
	return ProfileEntry{
		Name:       name,
		Candidates: candidates,
		Text:       func(f *models.FormFields, s string) { set(f, ptr(s)) },
	}
}

func scoreEntry(name string, set func(*models.FormFields, *int), candidates ...string) ProfileEntry {
	return ProfileEntry{
		Name:       name,
		Candidates: candidates,
		Score:      func(f *models.FormFields, n int) { set(f, ptr(n)) },
	}
}

// ProfileFieldMap maps the signup form's profile questions.
var ProfileFieldMap = []ProfileEntry{
	textEntry("first_name", func(f *models.FormFields, v *string) { f.FirstName = v }, "question_EQROMA", "What's your first name?"),
	textEntry("phone", func(f *models.FormFields, v *string) { f.Phone = v }, "question_rA4Zvp", "Whats your phone number?"),
	textEntry("first_time", func(f *models.FormFields, v *string) { f.FirstTime = v }, "question_4x6bzd", "First time at Stranger Beers?"),
	textEntry("age", func(f *models.FormFields, v *string) { f.Age = v }, "question_72AkM6", "How old are you?"),
	textEntry("gender", func(f *models.FormFields, v *string) { f.Gender = v }, "question_jQRVvY", "How do you identify?"),
	textEntry("country", func(f *models.FormFields, v *string) { f.Country = v }, "question_62lBMo", "Where are you from"),
	textEntry("background", func(f *models.FormFields, v *string) { f.Background = v }, "question_ALgXyo", "What's your background"),
	scoreEntry("creative_expression_score", func(f *models.FormFields, v *int) { f.CreativeExpressionScore = v }, "question_2NW67g", "creative expression"),
	scoreEntry("social_anxiety_score", func(f *models.FormFields, v *int) { f.SocialAnxietyScore = v }, "question_xaqWvE", "feel nervous"),
	scoreEntry("emotional_intuition_score", func(f *models.FormFields, v *int) { f.EmotionalIntuitionScore = v }, "question_NWjZdN", "emotional intuition"),
	scoreEntry("solitary_preference_score", func(f *models.FormFields, v *int) { f.SolitaryPreferenceScore = v }, "question_Z67BDA", "solitary hobbies"),
	textEntry("interests_active_outdoors", func(f *models.FormFields, v *string) { f.InterestsActiveOutdoors = v }, "question_qArlv8", "Active & Outdoors"),
	textEntry("interests_creativity", func(f *models.FormFields, v *string) { f.InterestsCreativity = v }, "question_Q5ZQkl", "Creativity & Expression"),
	textEntry("interests_intellectual", func(f *models.FormFields, v *string) { f.InterestsIntellectual = v }, "question_9DkKMK", "Intellectual & Curious"),
	textEntry("interests_food_social", func(f *models.FormFields, v *string) { f.InterestsFoodSocial = v }, "question_eeJXvJ", "Food & Social"),
	textEntry("interests_games", func(f *models.FormFields, v *string) { f.InterestsGames = v }, "question_W5W71L", "Games & Collecting"),
	textEntry("interests_mind_self", func(f *models.FormFields, v *string) { f.InterestsMindSelf = v }, "question_aYLMvW", "Mind & Self"),
	textEntry("mbti", func(f *models.FormFields, v *string) { f.MBTI = v }, "question_bxpJv0", "MBTI"),
	textEntry("optional_note", func(f *models.FormFields, v *string) { f.OptionalNote = v }, "question_BkyRe4", "One last"),
}
