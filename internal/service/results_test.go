package service

import (
	"context"
	"math"
	"testing"

	"github.com/tallyhub/tallyhub/internal/model"
)

func TestPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count, total int64
		want         float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 1, 100},
		{0, 1, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{1, 7, 14.29},
		{2, 7, 28.57},
	}

	for _, tt := range tests {
		if got := Percentage(tt.count, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.count, tt.total, got, tt.want)
		}
	}
}

func TestAggregate_SumsToHundred(t *testing.T) {
	t.Parallel()

	poll := &model.Poll{ID: "p", Title: "T"}
	questions := []*model.Question{
		{ID: "q1", Text: "three way", ChoiceMode: model.ChoiceSingle},
		{ID: "q2", Text: "no votes", ChoiceMode: model.ChoiceMultiple},
	}
	options := []*model.Option{
		{ID: "a", QuestionID: "q1", Text: "A"},
		{ID: "b", QuestionID: "q1", Text: "B"},
		{ID: "c", QuestionID: "q1", Text: "C"},
		{ID: "x", QuestionID: "q2", Text: "X"},
		{ID: "y", QuestionID: "q2", Text: "Y"},
	}
	counts := map[string]int64{"a": 1, "b": 1, "c": 1, "stray": 4}

	res := Aggregate(poll, questions, options, counts)
	if res.PollID != "p" || res.Title != "T" || len(res.Questions) != 2 {
		t.Fatalf("results = %+v", res)
	}

	q1 := res.Questions[0]
	if q1.TotalVotes != 3 {
		t.Errorf("q1 total = %d, want 3", q1.TotalVotes)
	}
	var sum float64
	for _, o := range q1.Options {
		sum += o.Percentage
	}
	if math.Abs(sum-100) > 0.05 {
		t.Errorf("q1 percentages sum to %v", sum)
	}

	q2 := res.Questions[1]
	if q2.TotalVotes != 0 {
		t.Errorf("q2 total = %d, want 0", q2.TotalVotes)
	}
	for _, o := range q2.Options {
		if o.Percentage != 0 || math.IsNaN(o.Percentage) {
			t.Errorf("q2 option %s percentage = %v, want 0", o.OptionID, o.Percentage)
		}
	}
}

func TestAggregate_QuestionWithoutOptions(t *testing.T) {
	t.Parallel()

	res := Aggregate(&model.Poll{ID: "p"}, []*model.Question{{ID: "q"}}, nil, nil)
	if len(res.Questions) != 1 || len(res.Questions[0].Options) != 0 || res.Questions[0].TotalVotes != 0 {
		t.Errorf("results = %+v", res)
	}
}

func TestGetResults_ReflectsStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.user(t, "owner")
	poll := env.poll(t, owner, true)
	first := env.question(t, owner, poll.ID, model.ChoiceSingle, "A", "B")
	second := env.question(t, owner, poll.ID, model.ChoiceSingle, "C", "D")

	voters := []model.Principal{env.user(t, "v1"), env.user(t, "v2"), env.user(t, "v3")}
	for i, v := range voters {
		option := first.Options[0]
		if i == 2 {
			option = first.Options[1]
		}
		if _, err := env.votes.CastVote(ctx, v, poll.ID, first.ID, option.ID); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}

	res, err := env.results.GetResults(ctx, model.Anonymous(), poll.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if res.Questions[0].QuestionID != second.ID {
		t.Errorf("newest question should come first")
	}
	if res.Questions[0].TotalVotes != 0 {
		t.Errorf("second question total = %d, want 0", res.Questions[0].TotalVotes)
	}

	qr := res.Questions[1]
	if qr.TotalVotes != 3 {
		t.Fatalf("first question total = %d, want 3", qr.TotalVotes)
	}
	if qr.Options[0].Count != 2 || qr.Options[0].Percentage != 66.67 {
		t.Errorf("A = %+v", qr.Options[0])
	}
	if qr.Options[1].Count != 1 || qr.Options[1].Percentage != 33.33 {
		t.Errorf("B = %+v", qr.Options[1])
	}

	snap := env.metrics.Snapshot()
	if snap.ResultsDurationCount != 1 {
		t.Errorf("ResultsDurationCount = %d, want 1", snap.ResultsDurationCount)
	}
}

func TestGetResults_PrivatePoll(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	stranger := env.user(t, "stranger")
	poll := env.poll(t, owner, false)

	_, err := env.results.GetResults(context.Background(), stranger, poll.ID)
	requireKind(t, err, ErrForbidden)
}
