package claims

import (
	"context"
	"sync"
	"testing"

	"github.com/giftloop/giftloop-backend/pkg/enums"
	pkgerrors "github.com/giftloop/giftloop-backend/pkg/errors"
)

// Races many members at one unclaimed item. Transactions serialize on the
// runner's lock the way row locks serialize them in Postgres, so exactly one
// claim must win and every loser must see the winner in the conflict details.
func TestConcurrentClaimsHaveExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	conflicts := 0

	run := func(actor int) {
		defer wg.Done()
		actorID := f.memberA
		if actor%2 == 1 {
			actorID = f.memberB
		}
		_, err := f.svc.Claim(ctx, actorID, f.repo.item.ID)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			successes++
		default:
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
				t.Errorf("unexpected error: %v", err)
				return
			}
			conflicts++
		}
	}

	const racers = 16
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go run(i)
	}
	wg.Wait()

	if f.repo.item.Status != enums.ClaimStatusClaimed {
		t.Fatalf("expected item claimed, got %s", f.repo.item.Status)
	}
	if f.repo.saves != 1 {
		t.Fatalf("expected exactly one winning write, got %d", f.repo.saves)
	}

	// Half the racers are the eventual winner retrying; idempotent repeats
	// count as successes, the other member's attempts all conflict.
	if successes == 0 || conflicts == 0 {
		t.Fatalf("expected both successes and conflicts, got %d/%d", successes, conflicts)
	}
	if successes+conflicts != racers {
		t.Fatalf("lost results: %d successes + %d conflicts != %d", successes, conflicts, racers)
	}
}
