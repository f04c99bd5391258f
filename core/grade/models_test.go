package grade

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/shule/core"
)

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator(enLocale.Locale())
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func TestScoreValue_UnmarshalJSON(t *testing.T) {
	var payload map[string]ScoreValue
	blob := `{"Math": 88, "Science": {"q1": 80, "q3": 75}}`
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	math := payload["Math"]
	if math.Single == nil || *math.Single != 88 {
		t.Errorf("bare number not captured: %+v", math)
	}

	sci := payload["Science"]
	if sci.Single != nil {
		t.Errorf("object form captured as bare number: %+v", sci)
	}
	if sci.Quarters.Q1 == nil || *sci.Quarters.Q1 != 80 || sci.Quarters.Q3 == nil || *sci.Quarters.Q3 != 75 {
		t.Errorf("object form quarters wrong: %+v", sci.Quarters)
	}
}

func TestScoreValue_Normalize(t *testing.T) {
	bare := ScoreValue{Single: intp(88)}

	qs, err := bare.Normalize(Q2)
	if err != nil {
		t.Fatalf("Normalize(q2) failed: %v", err)
	}
	if qs.Q2 == nil || *qs.Q2 != 88 || qs.Q1 != nil {
		t.Errorf("Normalize(q2) = %+v, want only Q2 set", qs)
	}

	// a bare number has no quarter of its own; "all" cannot place it
	if _, err = bare.Normalize(QuarterAll); err == nil {
		t.Error("Normalize(all) with a bare number should fail")
	}

	obj := ScoreValue{Quarters: QuarterScores{Q1: intp(80)}}
	qs, err = obj.Normalize(QuarterAll)
	if err != nil {
		t.Fatalf("Normalize(all) failed: %v", err)
	}
	if qs.Q1 == nil || *qs.Q1 != 80 {
		t.Errorf("Normalize(all) = %+v, want the object's quarters", qs)
	}
}

func TestUpdateRequest_Validate(t *testing.T) {
	validate := newValidator(t)

	tests := []struct {
		name    string
		req     UpdateRequest
		wantErr bool
	}{
		{
			"valid bare scores",
			UpdateRequest{Quarter: Q1, Subjects: map[string]ScoreValue{"Math": {Single: intp(85)}}},
			false,
		},
		{
			"valid object form with all",
			UpdateRequest{Quarter: QuarterAll, Subjects: map[string]ScoreValue{"Math": {Quarters: QuarterScores{Q1: intp(85)}}}},
			false,
		},
		{
			"quarter selector is normalized to lowercase",
			UpdateRequest{Quarter: "Q1", Subjects: map[string]ScoreValue{"Math": {Single: intp(85)}}},
			false,
		},
		{
			"missing quarter",
			UpdateRequest{Subjects: map[string]ScoreValue{"Math": {Single: intp(85)}}},
			true,
		},
		{
			"unknown quarter",
			UpdateRequest{Quarter: "q5", Subjects: map[string]ScoreValue{"Math": {Single: intp(85)}}},
			true,
		},
		{
			"no subjects",
			UpdateRequest{Quarter: Q1, Subjects: map[string]ScoreValue{}},
			true,
		},
		{
			"empty subject name",
			UpdateRequest{Quarter: Q1, Subjects: map[string]ScoreValue{" ": {Single: intp(85)}}},
			true,
		},
		{
			"bare number with all",
			UpdateRequest{Quarter: QuarterAll, Subjects: map[string]ScoreValue{"Math": {Single: intp(85)}}},
			true,
		},
		{
			"score above 100",
			UpdateRequest{Quarter: Q1, Subjects: map[string]ScoreValue{"Math": {Single: intp(101)}}},
			true,
		},
		{
			"negative score",
			UpdateRequest{Quarter: Q1, Subjects: map[string]ScoreValue{"Math": {Single: intp(-1)}}},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
