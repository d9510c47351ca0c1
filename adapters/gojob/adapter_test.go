package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-orderflow/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestMessageMappingRoundTrip(t *testing.T) {
	original := NewOutboxDispatchMessage(50, "idem-outbox")

	converted := ToExecutionMessage(original)
	if converted == nil {
		t.Fatalf("expected converted message")
	}
	roundTrip := FromExecutionMessage(converted)
	if roundTrip.JobID != JobIDOutboxDispatch {
		t.Fatalf("expected job id %q, got %q", JobIDOutboxDispatch, roundTrip.JobID)
	}
	if roundTrip.IdempotencyKey != "idem-outbox" {
		t.Fatalf("expected idempotency key to survive mapping, got %q", roundTrip.IdempotencyKey)
	}
	if roundTrip.DedupPolicy != "drop" {
		t.Fatalf("expected drop dedup policy, got %q", roundTrip.DedupPolicy)
	}
	if roundTrip.Parameters["batch_size"] != 50 {
		t.Fatalf("expected batch size parameter to survive mapping")
	}
}

func TestEnqueueAndDequeueAdapters(t *testing.T) {
	ctx := context.Background()
	enqueuer := &stubQueueEnqueuer{}
	enqueueAdapter := NewEnqueuerAdapter(enqueuer)

	if err := enqueueAdapter.Enqueue(ctx, NewOutboxDispatchMessage(25, "idem-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDOutboxDispatch {
		t.Fatalf("expected mapped go-job message")
	}

	dequeuer := &stubQueueDequeuer{delivery: &stubQueueDelivery{msg: enqueuer.last}}
	dequeueAdapter := NewDequeuerAdapter(dequeuer, RetryPolicy{})
	delivery, err := dequeueAdapter.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	got := delivery.Message()
	if got == nil || got.JobID != JobIDOutboxDispatch {
		t.Fatalf("expected mapped orderflow message")
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !dequeuer.delivery.(*stubQueueDelivery).acked {
		t.Fatalf("expected ack on underlying delivery")
	}
}

func TestNackRetryPolicyBoundaries(t *testing.T) {
	ctx := context.Background()
	rawDelivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{
			JobID:      JobIDClaimSweep,
			ScriptPath: JobIDClaimSweep,
		},
	}
	adapter := NewDeliveryAdapter(rawDelivery, RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	})

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{
		Delay:   30 * time.Second,
		Requeue: true,
		Reason:  "transient",
	}, 1); err != nil {
		t.Fatalf("nack attempt 1: %v", err)
	}
	if rawDelivery.nackOpts.Delay != 10*time.Second {
		t.Fatalf("expected delay to be bounded, got %s", rawDelivery.nackOpts.Delay)
	}
	if !rawDelivery.nackOpts.Requeue {
		t.Fatalf("expected message to be requeued before max attempts")
	}

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{
		Delay:   time.Second,
		Requeue: true,
		Reason:  "still failing",
	}, 3); err != nil {
		t.Fatalf("nack max attempt: %v", err)
	}
	if rawDelivery.nackOpts.Requeue {
		t.Fatalf("expected no requeue once max attempts is reached")
	}
	if !rawDelivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter on max attempts")
	}
}

func TestDispatchRetryPolicyFollowsDispatchTuning(t *testing.T) {
	policy := DispatchRetryPolicy(core.DispatchConfig{
		MaxAttempts: 7,
		MaxBackoff:  42 * time.Second,
	})
	if policy.MaxAttempts != 7 {
		t.Fatalf("expected max attempts 7, got %d", policy.MaxAttempts)
	}
	if policy.MaxDelay != 42*time.Second {
		t.Fatalf("expected max delay 42s, got %s", policy.MaxDelay)
	}

	defaults := core.DefaultConfig().Dispatch
	fallback := DispatchRetryPolicy(core.DispatchConfig{})
	if fallback.MaxAttempts != defaults.MaxAttempts {
		t.Fatalf("expected default max attempts %d, got %d", defaults.MaxAttempts, fallback.MaxAttempts)
	}
	if fallback.MaxDelay != defaults.MaxBackoff {
		t.Fatalf("expected default max delay %s, got %s", defaults.MaxBackoff, fallback.MaxDelay)
	}
}

func TestOutboxDispatchHandlerDrainsOutbox(t *testing.T) {
	ctx := context.Background()
	outbox := core.NewMemoryOutbox()
	deliverer := &capturingDeliverer{}

	dispatcher, err := core.NewNotificationDispatcher(outbox, deliverer, core.DispatchConfig{})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	handler, err := NewOutboxDispatchHandler(dispatcher)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := outbox.Enqueue(ctx, core.Notification{
			Recipient:    core.RecipientCustomer,
			RecipientKey: "cust-1",
			Kind:         core.NotePaymentLink,
			OrderID:      "ord-1",
		}); err != nil {
			t.Fatalf("enqueue note %d: %v", i, err)
		}
	}

	stats, err := handler.Handle(ctx, NewOutboxDispatchMessage(10, ""))
	if err != nil {
		t.Fatalf("handle dispatch job: %v", err)
	}
	if stats.Delivered != 3 {
		t.Fatalf("expected 3 delivered, got %d", stats.Delivered)
	}
	if deliverer.calls != 3 {
		t.Fatalf("expected 3 transport calls, got %d", deliverer.calls)
	}

	if _, err := handler.Handle(ctx, &core.JobExecutionMessage{JobID: "other.job"}); err == nil {
		t.Fatalf("expected unexpected job id rejection")
	}
	if _, err := handler.Handle(ctx, nil); err == nil {
		t.Fatalf("expected nil message rejection")
	}
}

func TestWorkerHookAdapterEventMapping(t *testing.T) {
	now := time.Now().UTC().Add(-time.Second)
	coreHook := &capturingHook{}
	adapter := NewWorkerHookAdapter(coreHook)

	evt := worker.Event{
		Message: &job.ExecutionMessage{
			JobID:          JobIDOutboxDispatch,
			ScriptPath:     JobIDOutboxDispatch,
			IdempotencyKey: "idem-dispatch",
		},
		Attempt:   2,
		Delay:     5 * time.Second,
		Err:       errors.New("retry"),
		StartedAt: now,
		Duration:  250 * time.Millisecond,
	}

	adapter.OnRetry(context.Background(), evt)
	if coreHook.last.Message == nil {
		t.Fatalf("expected worker message mapping")
	}
	if coreHook.last.Message.JobID != JobIDOutboxDispatch {
		t.Fatalf("expected job id mapping, got %q", coreHook.last.Message.JobID)
	}
	if coreHook.last.Attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", coreHook.last.Attempt)
	}
	if coreHook.last.Delay != 5*time.Second {
		t.Fatalf("expected delay 5s, got %s", coreHook.last.Delay)
	}
	if coreHook.last.Duration != 250*time.Millisecond {
		t.Fatalf("expected duration mapping")
	}
	if coreHook.last.StartedAt.IsZero() {
		t.Fatalf("expected started_at mapping")
	}
	if coreHook.last.Err == nil || coreHook.last.Err.Error() != "retry" {
		t.Fatalf("expected error mapping")
	}
}

type capturingDeliverer struct {
	calls int
}

func (d *capturingDeliverer) Deliver(context.Context, core.Notification) error {
	d.calls++
	return nil
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}

type capturingHook struct {
	last core.JobWorkerEvent
}

func (h *capturingHook) OnStart(context.Context, core.JobWorkerEvent)   {}
func (h *capturingHook) OnSuccess(context.Context, core.JobWorkerEvent) {}
func (h *capturingHook) OnFailure(context.Context, core.JobWorkerEvent) {}
func (h *capturingHook) OnRetry(_ context.Context, event core.JobWorkerEvent) {
	h.last = event
}
