package facilitator

import "context"

// EventSink receives lifecycle notifications around verify and settle
// operations. Implementations are injected with WithEventSink; a nil sink
// disables notifications. Callbacks run synchronously on the request path,
// so they should be fast; spawn a goroutine for anything slow.
//
// OnAfterVerify/OnAfterSettle fire on valid/settled outcomes;
// OnVerifyFailure/OnSettleFailure fire with the structured reason when the
// pipeline rejects.
type EventSink interface {
	OnBeforeVerify(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement)
	OnAfterVerify(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement, result *VerifyResponse)
	OnVerifyFailure(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement, reason string)
	OnBeforeSettle(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement)
	OnAfterSettle(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement, result *SettlementResponse)
	OnSettleFailure(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement, reason string)
}

// nil-safe emit helpers used by the verify and settle paths

func (f *Facilitator) emitBeforeVerify(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement) {
	if f.sink != nil {
		f.sink.OnBeforeVerify(ctx, payment, requirement)
	}
}

func (f *Facilitator) emitVerifyResult(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement, result *VerifyResponse) {
	if f.sink == nil {
		return
	}
	if result.IsValid {
		f.sink.OnAfterVerify(ctx, payment, requirement, result)
	} else {
		f.sink.OnVerifyFailure(ctx, payment, requirement, result.InvalidReason)
	}
}

func (f *Facilitator) emitBeforeSettle(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement) {
	if f.sink != nil {
		f.sink.OnBeforeSettle(ctx, payment, requirement)
	}
}

func (f *Facilitator) emitSettleResult(ctx context.Context, payment *PaymentPayload, requirement *PaymentRequirement, result *SettlementResponse) {
	if f.sink == nil {
		return
	}
	if result.Success {
		f.sink.OnAfterSettle(ctx, payment, requirement, result)
	} else {
		f.sink.OnSettleFailure(ctx, payment, requirement, result.ErrorReason)
	}
}
