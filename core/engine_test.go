package core

import (
	"testing"
)

func testEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OperatorID = "op-1"
	if mutate != nil {
		mutate(&cfg)
	}
	return NewEngine(cfg, nil)
}

func orderIn(state State) *Order {
	order := &Order{
		ID:               "ord-1234",
		CustomerID:       "cust-1",
		CustomerName:     "Ada",
		OriginalImageRef: "file-original",
		State:            state,
	}
	if state.Rank() >= StateAwaitingOperatorReview.Rank() {
		order.TierPrice = 30
		order.PaymentProofRef = "file-proof"
	}
	if state == StateAwaitingPayment {
		order.TierPrice = 30
	}
	return order
}

func TestEngine_SelectTierRecordsTierAndPaymentLink(t *testing.T) {
	engine := testEngine(t, nil)
	order := orderIn(StateAwaitingTierSelection)

	notes, err := engine.Apply(order, SelectTier{CustomerID: "cust-1", Price: 30})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.State != StateAwaitingPayment {
		t.Fatalf("expected %s, got %s", StateAwaitingPayment, order.State)
	}
	if order.TierPrice != 30 {
		t.Fatalf("expected tier recorded, got %d", order.TierPrice)
	}
	if len(notes) != 1 || notes[0].Kind != NotePaymentLink {
		t.Fatalf("expected a payment-link notice, got %+v", notes)
	}
	if link := notes[0].Metadata["payment_link"]; link != "https://rzp.io/r/NTJ69QRD" {
		t.Fatalf("unexpected payment link %v", link)
	}
}

func TestEngine_SelectTierOnlyFromTierSelection(t *testing.T) {
	engine := testEngine(t, nil)
	for _, state := range []State{
		StateAwaitingPayment,
		StateAwaitingOperatorReview,
		StateAwaitingEmail,
		StateAwaitingDelivery,
		StateCompleted,
		StateRejected,
		StateCancelled,
	} {
		order := orderIn(state)
		_, err := engine.Apply(order, SelectTier{CustomerID: "cust-1", Price: 30})
		if !IsInvalidTransition(err) {
			t.Fatalf("state %s: expected invalid transition, got %v", state, err)
		}
		if order.State != state {
			t.Fatalf("state %s: rejected event must not mutate, got %s", state, order.State)
		}
	}
}

func TestEngine_SelectTierUnknownPriceRejected(t *testing.T) {
	engine := testEngine(t, nil)
	order := orderIn(StateAwaitingTierSelection)

	_, err := engine.Apply(order, SelectTier{CustomerID: "cust-1", Price: 99})
	if !IsValidationFailed(err) {
		t.Fatalf("expected validation failure for unknown tier, got %v", err)
	}
	if order.TierSelected() {
		t.Fatalf("unknown tier must not be recorded")
	}
}

func TestEngine_SubmitProofNotifiesOperatorWithControls(t *testing.T) {
	engine := testEngine(t, nil)
	order := orderIn(StateAwaitingPayment)

	notes, err := engine.Apply(order, SubmitPaymentProof{CustomerID: "cust-1", ProofRef: "file-proof"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.State != StateAwaitingOperatorReview {
		t.Fatalf("expected %s, got %s", StateAwaitingOperatorReview, order.State)
	}
	if order.PaymentProofRef != "file-proof" {
		t.Fatalf("expected proof recorded, got %q", order.PaymentProofRef)
	}
	if len(notes) != 2 {
		t.Fatalf("expected customer ack plus operator review, got %d notes", len(notes))
	}
	review := notes[1]
	if review.Recipient != RecipientOperator || review.Kind != NoteReviewRequested {
		t.Fatalf("unexpected operator note %+v", review)
	}
	if review.RecipientKey != "op-1" {
		t.Fatalf("expected operator recipient key, got %q", review.RecipientKey)
	}
	actions, ok := review.Metadata["actions"].([]string)
	if !ok || len(actions) == 0 {
		t.Fatalf("expected action controls in review metadata")
	}
}

func TestEngine_ApproveRoutesThroughEmailStep(t *testing.T) {
	engine := testEngine(t, nil)
	order := orderIn(StateAwaitingOperatorReview)

	notes, err := engine.Apply(order, OperatorAction{OperatorID: "op-1", OrderID: order.ID, Verb: VerbApprove})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.State != StateAwaitingEmail {
		t.Fatalf("expected %s, got %s", StateAwaitingEmail, order.State)
	}
	if len(notes) != 1 || notes[0].Kind != NoteApproved {
		t.Fatalf("expected approval notice, got %+v", notes)
	}
}

func TestEngine_ApproveSkipsEmailStepWhenDisabled(t *testing.T) {
	engine := testEngine(t, func(cfg *Config) {
		cfg.SkipEmailStep = true
	})
	order := orderIn(StateAwaitingOperatorReview)

	notes, err := engine.Apply(order, OperatorAction{OperatorID: "op-1", OrderID: order.ID, Verb: VerbApprove})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.State != StateAwaitingDelivery {
		t.Fatalf("expected %s, got %s", StateAwaitingDelivery, order.State)
	}
	if len(notes) != 2 || notes[1].Kind != NoteDeliveryRequested {
		t.Fatalf("expected delivery request to operator, got %+v", notes)
	}
}

func TestEngine_RejectAndAskProof(t *testing.T) {
	engine := testEngine(t, nil)

	rejected := orderIn(StateAwaitingOperatorReview)
	if _, err := engine.Apply(rejected, OperatorAction{Verb: VerbReject}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.State != StateRejected {
		t.Fatalf("expected %s, got %s", StateRejected, rejected.State)
	}

	retry := orderIn(StateAwaitingOperatorReview)
	if _, err := engine.Apply(retry, OperatorAction{Verb: VerbAskProof}); err != nil {
		t.Fatalf("ask proof: %v", err)
	}
	if retry.State != StateAwaitingPayment {
		t.Fatalf("expected %s, got %s", StateAwaitingPayment, retry.State)
	}
}

func TestEngine_SubmitEmailValidatesAndAdvances(t *testing.T) {
	engine := testEngine(t, nil)
	order := orderIn(StateAwaitingEmail)

	_, err := engine.Apply(order, SubmitEmail{CustomerID: "cust-1", Address: "foo@gmial.com"})
	if !IsValidationFailed(err) {
		t.Fatalf("expected typo rejection, got %v", err)
	}
	if order.State != StateAwaitingEmail {
		t.Fatalf("rejected email must keep order in %s, got %s", StateAwaitingEmail, order.State)
	}
	if order.ContactEmail != "" {
		t.Fatalf("rejected email must not be stored")
	}

	notes, err := engine.Apply(order, SubmitEmail{CustomerID: "cust-1", Address: "foo@gmail.com"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.State != StateAwaitingDelivery {
		t.Fatalf("expected %s, got %s", StateAwaitingDelivery, order.State)
	}
	if order.ContactEmail != "foo@gmail.com" {
		t.Fatalf("expected email stored, got %q", order.ContactEmail)
	}
	if len(notes) != 2 || notes[1].Kind != NoteDeliveryRequested {
		t.Fatalf("expected delivery request after email capture, got %+v", notes)
	}
}

func TestEngine_SkipEmailAdvancesToDelivery(t *testing.T) {
	engine := testEngine(t, nil)
	order := orderIn(StateAwaitingEmail)

	notes, err := engine.Apply(order, SkipEmail{CustomerID: "cust-1"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.State != StateAwaitingDelivery {
		t.Fatalf("expected %s, got %s", StateAwaitingDelivery, order.State)
	}
	if len(notes) != 1 || notes[0].Kind != NoteDeliveryRequested {
		t.Fatalf("expected delivery request, got %+v", notes)
	}
}

func TestEngine_DeliverRecordsArtifact(t *testing.T) {
	engine := testEngine(t, nil)
	order := orderIn(StateAwaitingDelivery)
	order.ContactEmail = "foo@gmail.com"

	notes, err := engine.Apply(order, DeliverArtifact{OrderID: order.ID, ArtifactRef: "file-upscaled"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.State != StateCompleted {
		t.Fatalf("expected %s, got %s", StateCompleted, order.State)
	}
	if order.DeliveredImageRef != "file-upscaled" {
		t.Fatalf("expected artifact recorded, got %q", order.DeliveredImageRef)
	}
	if len(notes) != 1 || notes[0].Kind != NoteCompleted {
		t.Fatalf("expected completion notice, got %+v", notes)
	}
	if email := notes[0].Metadata["email"]; email != "foo@gmail.com" {
		t.Fatalf("expected captured email in metadata, got %v", email)
	}
}

func TestEngine_CancelFromAnyNonTerminal(t *testing.T) {
	engine := testEngine(t, nil)
	for _, state := range []State{
		StateAwaitingTierSelection,
		StateAwaitingPayment,
		StateAwaitingOperatorReview,
		StateAwaitingEmail,
		StateAwaitingDelivery,
	} {
		order := orderIn(state)
		if _, err := engine.Apply(order, CustomerCancel{CustomerID: "cust-1"}); err != nil {
			t.Fatalf("cancel from %s: %v", state, err)
		}
		if order.State != StateCancelled {
			t.Fatalf("cancel from %s: got %s", state, order.State)
		}
	}

	for _, state := range []State{StateCompleted, StateRejected, StateCancelled} {
		order := orderIn(state)
		if _, err := engine.Apply(order, CustomerCancel{CustomerID: "cust-1"}); !IsInvalidTransition(err) {
			t.Fatalf("cancel from terminal %s: expected invalid transition, got %v", state, err)
		}
	}
}

func TestEngine_RequestDeliveryForcesPastEmailStep(t *testing.T) {
	engine := testEngine(t, nil)
	order := orderIn(StateAwaitingEmail)

	notes, err := engine.Apply(order, OperatorAction{Verb: VerbRequestDelivery})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if order.State != StateAwaitingDelivery {
		t.Fatalf("expected %s, got %s", StateAwaitingDelivery, order.State)
	}
	if len(notes) != 1 || notes[0].Kind != NoteDeliveryRequested {
		t.Fatalf("expected delivery request, got %+v", notes)
	}
}
