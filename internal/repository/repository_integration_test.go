//go:build integration

package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/repository"
	"github.com/tallyhub/tallyhub/internal/testutil"
)

// ============================================================================
// PostgreSQL Entity Store Integration Tests
// ============================================================================

func newRepoTestEnv(t *testing.T) (context.Context, *repository.Repository) {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	ctx := context.Background()

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect database: %v", err)
	}

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		repo.Close()
		t.Fatalf("lock database: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
		repo.Close()
	})

	if err := testutil.ResetSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}

func createUser(t *testing.T, ctx context.Context, repo *repository.Repository, username string) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, username)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func createQuestion(t *testing.T, ctx context.Context, repo *repository.Repository, pollID string, mode model.ChoiceMode, createdAt time.Time) (*model.Question, []*model.Option) {
	t.Helper()
	q := &model.Question{
		ID:         testutil.UniqueID("question"),
		PollID:     pollID,
		Text:       "Pick one",
		ChoiceMode: mode,
		CreatedAt:  createdAt,
	}
	opts := []*model.Option{
		{ID: testutil.UniqueID("option"), QuestionID: q.ID, Text: "Yes", CreatedAt: createdAt},
		{ID: testutil.UniqueID("option"), QuestionID: q.ID, Text: "No", CreatedAt: createdAt.Add(time.Millisecond)},
	}
	if err := repo.CreateQuestion(ctx, q, opts); err != nil {
		t.Fatalf("CreateQuestion failed: %v", err)
	}
	return q, opts
}

func TestIntegrationRepository_Users(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	user := createUser(t, ctx, repo, "alice")

	byEmail, err := repo.GetUserByLogin(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByLogin(email) failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("ID mismatch: got %q, want %q", byEmail.ID, user.ID)
	}

	dup := testutil.NewTestUser(t, "alice")
	dup.Email = "other@example.com"
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, repository.ErrUsernameExists) {
		t.Errorf("duplicate username: got %v, want ErrUsernameExists", err)
	}

	dup = testutil.NewTestUser(t, "bob")
	dup.Email = user.Email
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("duplicate email: got %v, want ErrEmailExists", err)
	}

	if err := repo.SetSuperuser(ctx, user.ID, true); err != nil {
		t.Fatalf("SetSuperuser failed: %v", err)
	}
	got, err := repo.GetUserByID(ctx, user.ID)
	if err != nil || !got.Superuser {
		t.Errorf("GetUserByID = %+v, %v", got, err)
	}

	if _, err := repo.GetUserByID(ctx, "missing"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("missing user: got %v, want ErrUserNotFound", err)
	}
}

func TestIntegrationRepository_PollLifecycle(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createUser(t, ctx, repo, "owner")

	poll := testutil.NewTestPoll(t, owner.ID, "Lunch")
	if err := repo.CreatePoll(ctx, poll); err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}

	changed, err := repo.ClosePoll(ctx, poll.ID)
	if err != nil || !changed {
		t.Fatalf("first ClosePoll = %v, %v", changed, err)
	}
	changed, err = repo.ClosePoll(ctx, poll.ID)
	if err != nil || changed {
		t.Fatalf("second ClosePoll = %v, %v", changed, err)
	}
	if _, err := repo.ClosePoll(ctx, "missing"); !errors.Is(err, repository.ErrPollNotFound) {
		t.Errorf("ClosePoll(missing) = %v, want ErrPollNotFound", err)
	}

	// updates never reopen a poll
	poll.Title = "Dinner"
	poll.Closed = false
	if err := repo.UpdatePoll(ctx, poll); err != nil {
		t.Fatalf("UpdatePoll failed: %v", err)
	}
	got, err := repo.GetPoll(ctx, poll.ID)
	if err != nil {
		t.Fatalf("GetPoll failed: %v", err)
	}
	if got.Title != "Dinner" || !got.Closed {
		t.Errorf("poll after update = %+v", got)
	}

	q, opts := createQuestion(t, ctx, repo, poll.ID, model.ChoiceSingle, time.Now().UTC())
	if err := repo.InsertVote(ctx, &model.Vote{ID: testutil.UniqueID("vote"), OptionID: opts[0].ID, QuestionID: q.ID, UserID: owner.ID, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("InsertVote failed: %v", err)
	}

	if err := repo.DeletePoll(ctx, poll.ID); err != nil {
		t.Fatalf("DeletePoll failed: %v", err)
	}
	if _, err := repo.GetQuestion(ctx, q.ID); !errors.Is(err, repository.ErrQuestionNotFound) {
		t.Errorf("question survived delete: %v", err)
	}
	counts, err := repo.CountVotesByPoll(ctx, poll.ID)
	if err != nil || len(counts) != 0 {
		t.Errorf("votes survived delete: %v, %v", counts, err)
	}
}

func TestIntegrationRepository_ListPollsScoped(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	alice := createUser(t, ctx, repo, "alice")
	bob := createUser(t, ctx, repo, "bob")

	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i, spec := range []struct {
		owner  string
		public bool
	}{
		{alice.ID, true},
		{alice.ID, false},
		{bob.ID, false},
		{bob.ID, true},
	} {
		poll := testutil.NewTestPoll(t, spec.owner, "poll")
		poll.Public = spec.public
		poll.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.CreatePoll(ctx, poll); err != nil {
			t.Fatalf("CreatePoll failed: %v", err)
		}
		ids = append(ids, poll.ID)
	}

	tests := []struct {
		name   string
		filter repository.PollFilter
		want   []string
	}{
		{"all", repository.PollFilter{All: true}, []string{ids[3], ids[2], ids[1], ids[0]}},
		{"alice", repository.PollFilter{OwnerID: alice.ID}, []string{ids[3], ids[1], ids[0]}},
		{"anonymous", repository.PollFilter{}, []string{ids[3], ids[0]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			cursor := ""
			for {
				page, next, err := repo.ListPolls(ctx, tt.filter, cursor, 1)
				if err != nil {
					t.Fatalf("ListPolls failed: %v", err)
				}
				for _, p := range page {
					got = append(got, p.ID)
				}
				if next == "" {
					break
				}
				cursor = next
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}

	if _, _, err := repo.ListPolls(ctx, repository.PollFilter{All: true}, "garbage", 10); !errors.Is(err, repository.ErrInvalidCursor) {
		t.Errorf("bad cursor: got %v, want ErrInvalidCursor", err)
	}
}

func TestIntegrationRepository_QuestionsAndCounts(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createUser(t, ctx, repo, "owner")
	voter := createUser(t, ctx, repo, "voter")

	poll := testutil.NewTestPoll(t, owner.ID, "Lunch")
	if err := repo.CreatePoll(ctx, poll); err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Millisecond)
	older, olderOpts := createQuestion(t, ctx, repo, poll.ID, model.ChoiceSingle, base)
	newer, newerOpts := createQuestion(t, ctx, repo, poll.ID, model.ChoiceMultiple, base.Add(time.Second))

	questions, err := repo.ListQuestions(ctx, poll.ID)
	if err != nil {
		t.Fatalf("ListQuestions failed: %v", err)
	}
	if len(questions) != 2 || questions[0].ID != newer.ID || questions[1].ID != older.ID {
		t.Fatalf("questions not newest first: %+v", questions)
	}

	options, err := repo.ListOptions(ctx, []string{older.ID, newer.ID})
	if err != nil || len(options) != 4 {
		t.Fatalf("ListOptions = %d options, %v", len(options), err)
	}

	vote := func(user, questionID, optionID string) error {
		return repo.InsertVote(ctx, &model.Vote{
			ID:         testutil.UniqueID("vote"),
			OptionID:   optionID,
			QuestionID: questionID,
			UserID:     user,
			CreatedAt:  time.Now().UTC(),
		})
	}

	if err := vote(voter.ID, older.ID, olderOpts[0].ID); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if err := vote(voter.ID, older.ID, olderOpts[1].ID); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("second single vote: got %v, want ErrConflict", err)
	}
	if err := vote(voter.ID, older.ID, newerOpts[0].ID); !errors.Is(err, repository.ErrOptionNotFound) {
		t.Errorf("option of another question: got %v, want ErrOptionNotFound", err)
	}
	for _, opt := range newerOpts {
		if err := vote(voter.ID, newer.ID, opt.ID); err != nil {
			t.Fatalf("multiple vote failed: %v", err)
		}
	}

	has, err := repo.HasVote(ctx, voter.ID, older.ID)
	if err != nil || !has {
		t.Errorf("HasVote = %v, %v", has, err)
	}

	counts, err := repo.CountVotesByPoll(ctx, poll.ID)
	if err != nil {
		t.Fatalf("CountVotesByPoll failed: %v", err)
	}
	want := map[string]int64{olderOpts[0].ID: 1, newerOpts[0].ID: 1, newerOpts[1].ID: 1}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
	for id, n := range want {
		if counts[id] != n {
			t.Errorf("count[%s] = %d, want %d", id, counts[id], n)
		}
	}
}

func TestIntegrationRepository_QuestionEdits(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createUser(t, ctx, repo, "owner")

	poll := testutil.NewTestPoll(t, owner.ID, "Lunch")
	if err := repo.CreatePoll(ctx, poll); err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	q, opts := createQuestion(t, ctx, repo, poll.ID, model.ChoiceSingle, time.Now().UTC().Truncate(time.Millisecond))

	q.ChoiceMode = model.ChoiceMultiple
	if err := repo.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("mode change without votes: %v", err)
	}

	if err := repo.InsertVote(ctx, &model.Vote{
		ID:         testutil.UniqueID("vote"),
		OptionID:   opts[0].ID,
		QuestionID: q.ID,
		UserID:     owner.ID,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("InsertVote failed: %v", err)
	}

	q.ChoiceMode = model.ChoiceSingle
	if err := repo.UpdateQuestion(ctx, q); !errors.Is(err, repository.ErrQuestionHasVotes) {
		t.Errorf("mode change with votes: got %v, want ErrQuestionHasVotes", err)
	}

	q.ChoiceMode = model.ChoiceMultiple
	q.Text = "Pick any"
	if err := repo.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("text change with votes: %v", err)
	}
	got, err := repo.GetQuestion(ctx, q.ID)
	if err != nil || got.Text != "Pick any" || got.ChoiceMode != model.ChoiceMultiple {
		t.Errorf("GetQuestion = %+v, %v", got, err)
	}

	if err := repo.DeleteQuestion(ctx, q.ID); err != nil {
		t.Fatalf("DeleteQuestion failed: %v", err)
	}
	if err := repo.DeleteQuestion(ctx, q.ID); !errors.Is(err, repository.ErrQuestionNotFound) {
		t.Errorf("second delete: got %v, want ErrQuestionNotFound", err)
	}
	counts, err := repo.CountVotesByPoll(ctx, poll.ID)
	if err != nil || len(counts) != 0 {
		t.Errorf("counts after delete = %v, %v", counts, err)
	}
}

func TestIntegrationRepository_ListUsers(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, name := range []string{"ann", "bob", "cat"} {
		user := testutil.NewTestUser(t, name)
		user.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	first, cursor, err := repo.ListUsers(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(first) != 2 || first[0].Username != "cat" || first[1].Username != "bob" || cursor == "" {
		t.Fatalf("first page = %+v, cursor %q", first, cursor)
	}

	second, cursor, err := repo.ListUsers(ctx, cursor, 2)
	if err != nil {
		t.Fatalf("ListUsers page 2 failed: %v", err)
	}
	if len(second) != 1 || second[0].Username != "ann" || cursor != "" {
		t.Fatalf("second page = %+v, cursor %q", second, cursor)
	}

	if _, _, err := repo.ListUsers(ctx, "%%%", 2); !errors.Is(err, repository.ErrInvalidCursor) {
		t.Errorf("bad cursor: got %v, want ErrInvalidCursor", err)
	}
}

func TestIntegrationRepository_ConcurrentSingleChoice(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createUser(t, ctx, repo, "owner")

	poll := testutil.NewTestPoll(t, owner.ID, "Race")
	if err := repo.CreatePoll(ctx, poll); err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	q, opts := createQuestion(t, ctx, repo, poll.ID, model.ChoiceSingle, time.Now().UTC())

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- repo.InsertVote(ctx, &model.Vote{
				ID:         testutil.UniqueID("vote"),
				OptionID:   opts[i%2].ID,
				QuestionID: q.ID,
				UserID:     owner.ID,
				CreatedAt:  time.Now().UTC(),
			})
		}(i)
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, repository.ErrConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Errorf("accepted %d votes, want 1", accepted)
	}
}
