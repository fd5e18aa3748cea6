package gemini

import "text/template"

// Prompt templates for each generation operation. They are compiled
// once at construction time and instruct the model to answer with
// bare JSON matching the schemas in types.go.

const workoutPlanPromptText = `You are an expert strength and conditioning coach.
Create a workout plan for the following client.

Goal: {{.Goal}}
Training days per week: {{.DaysPerWeek}}
{{- if .Experience}}
Experience level: {{.Experience}}
{{- end}}
{{- if .Equipment}}
Available equipment: {{range $i, $e := .Equipment}}{{if $i}}, {{end}}{{$e}}{{end}}
{{- end}}

Respond with a single JSON object and nothing else, in this exact shape:
{
  "title": "short plan title",
  "summary": "one-paragraph overview of the plan",
  "days": [
    {
      "title": "day title",
      "focus": "primary focus of the day",
      "exercises": [
        {"name": "exercise name", "sets": 3, "reps": "8-12", "rest_secs": 90, "notes": "optional form cue"}
      ]
    }
  ]
}
The plan must contain exactly {{.DaysPerWeek}} days and every day must
contain at least one exercise.`

const workoutEditPromptText = `You are an expert strength and conditioning coach.
A client wants to change their existing workout plan.

Current plan (JSON):
{{.PlanJSON}}

Requested change: {{.Instruction}}

Apply the requested change and respond with the complete revised plan
as a single JSON object in the same shape as the current plan, with
"title", "summary", and "days" fields. Keep everything the client did
not ask to change. Respond with JSON and nothing else.`

const mealPromptText = `You are a nutrition expert. Parse the following meal
description into individual food items with estimated macronutrients.

Meal: {{.Description}}

Respond with a single JSON object and nothing else, in this exact shape:
{
  "items": [
    {"name": "food name", "quantity": "amount eaten", "macros": {"calories": 0, "protein": 0, "carbs": 0, "fat": 0}}
  ],
  "totals": {"calories": 0, "protein": 0, "carbs": 0, "fat": 0}
}
Macros are integers. Protein, carbs, and fat are grams. The totals
must be the sum over all items.`

const coachPromptText = `You are a supportive, knowledgeable fitness coach
chatting with a client. Keep replies concise and practical; ask a
follow-up question when the client's message is ambiguous.

Conversation so far:
{{range .History}}{{.Role}}: {{.Content}}
{{end}}
Respond with the coach's next message as plain text. Do not prefix it
with a role label.`

const transcribePromptText = `Transcribe the attached audio recording of someone
describing a meal or workout. Respond with a single JSON object and
nothing else, in this exact shape:
{"text": "the full transcription", "duration_secs": 0.0}
If no speech is audible, return an empty "text" field.`

// promptSet holds the compiled templates used by the generator.
type promptSet struct {
	workoutPlan *template.Template
	workoutEdit *template.Template
	meal        *template.Template
	coach       *template.Template
}

func compilePrompts() (*promptSet, error) {
	plan, err := template.New("workout_plan").Parse(workoutPlanPromptText)
	if err != nil {
		return nil, err
	}
	edit, err := template.New("workout_edit").Parse(workoutEditPromptText)
	if err != nil {
		return nil, err
	}
	meal, err := template.New("meal").Parse(mealPromptText)
	if err != nil {
		return nil, err
	}
	coach, err := template.New("coach").Parse(coachPromptText)
	if err != nil {
		return nil, err
	}
	return &promptSet{
		workoutPlan: plan,
		workoutEdit: edit,
		meal:        meal,
		coach:       coach,
	}, nil
}
