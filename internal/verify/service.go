package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tusharbhayani/SigText/internal/extract"
	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/qr"
	"github.com/tusharbhayani/SigText/internal/resolve"
	"github.com/tusharbhayani/SigText/internal/scan"
	"github.com/tusharbhayani/SigText/internal/store"
)

// Outcome is the result of one verification. Every attempt ends in an
// Outcome: Valid true, or Valid false with a human-readable Error. The
// caller is never left in an indeterminate state.
type Outcome struct {
	Valid     bool
	OrgID     string
	OrgName   string
	Error     string
	Mock      bool // result came from the degraded heuristic
	Details   Details
	MessageID string // persisted VerifiedMessage row, when one was written
	Duplicate bool   // same signed content was already recorded
	Scan      *scan.Outcome
}

// Service wires the verification pipeline together. All collaborators
// are injected; lifecycle is owned by the caller.
type Service struct {
	checker  Checker
	resolver *resolve.Resolver
	store    *store.Store  // nil disables persistence
	scanner  *scan.Scanner // nil disables content screening
	logger   *slog.Logger
}

// NewService creates a verification service. store and scanner may be
// nil.
func NewService(checker Checker, resolver *resolve.Resolver, st *store.Store, scanner *scan.Scanner, logger *slog.Logger) *Service {
	return &Service{
		checker:  checker,
		resolver: resolver,
		store:    st,
		scanner:  scanner,
		logger:   logger,
	}
}

// VerifyMessage runs the full pipeline on a free-text message body:
// extract the signature tag, resolve the sender, check the signature,
// persist the result. phone may be empty; userID attributes the attempt
// in the audit log.
func (s *Service) VerifyMessage(ctx context.Context, raw, phone, userID string, method model.Method) *Outcome {
	parsed := extract.Message(raw)
	if phone != "" {
		parsed.Metadata["phone"] = phone
	}

	details := Details{
		Method:      method,
		ContentHash: model.ContentHash(parsed.Content),
		VerifiedAt:  time.Now().UTC(),
	}
	switch method {
	case model.MethodSMS:
		details.SMS = &SMSDetails{
			Phone:        phone,
			MatchedBlock: parsed.Metadata["matched_block"],
			Scheme:       string(parsed.Scheme),
		}
	case model.MethodManual:
		details.Manual = &ManualDetails{EnteredBy: userID}
	}

	if !parsed.HasSignature() {
		// Parse miss is a normal outcome, not an error condition
		out := &Outcome{Error: "no signature to verify", Details: details}
		s.logAttempt(ctx, out, parsed.Content, "", userID, method)
		return out
	}

	res, err := s.resolver.Resolve(ctx, parsed.SenderHint, phone)
	if err != nil {
		if !errors.Is(err, resolve.ErrUnresolved) {
			s.logger.Warn("sender resolution failed", "error", err)
		}
		out := &Outcome{Error: "sender could not be resolved; cannot verify", Details: details}
		s.logAttempt(ctx, out, parsed.Content, parsed.Signature, userID, method)
		return out
	}

	return s.check(ctx, parsed.Content, parsed.Signature, res.Address, userID, details)
}

// VerifyQR runs the pipeline on a scanned QR payload.
func (s *Service) VerifyQR(ctx context.Context, payload *qr.Payload, userID string) *Outcome {
	details := Details{
		Method:      model.MethodQR,
		ContentHash: model.ContentHash(payload.Message),
		VerifiedAt:  time.Now().UTC(),
		QR: &QRDetails{
			OrganizationName: payload.OrganizationName,
			PayloadTimestamp: payload.Timestamp,
			PayloadVersion:   payload.Version,
		},
	}

	res, err := s.resolver.Resolve(ctx, payload.Sender, "")
	if err != nil {
		out := &Outcome{Error: "sender could not be resolved; cannot verify", Details: details}
		s.logAttempt(ctx, out, payload.Message, payload.Signature, userID, model.MethodQR)
		return out
	}

	return s.check(ctx, payload.Message, payload.Signature, res.Address, userID, details)
}

// VerifyManual verifies an explicitly supplied (content, signature,
// sender) triple.
func (s *Service) VerifyManual(ctx context.Context, content, signature, sender, userID string) *Outcome {
	details := Details{
		Method:      model.MethodManual,
		ContentHash: model.ContentHash(content),
		VerifiedAt:  time.Now().UTC(),
		Manual:      &ManualDetails{EnteredBy: userID},
	}

	res, err := s.resolver.Resolve(ctx, sender, "")
	if err != nil {
		out := &Outcome{Error: "sender could not be resolved; cannot verify", Details: details}
		s.logAttempt(ctx, out, content, signature, userID, model.MethodManual)
		return out
	}

	return s.check(ctx, content, signature, res.Address, userID, details)
}

// check runs the signature check and persistence for an already-resolved
// sender.
func (s *Service) check(ctx context.Context, content, signature, sender, userID string, details Details) *Outcome {
	if content == "" {
		out := &Outcome{Error: "message content is empty", Details: details}
		s.logAttempt(ctx, out, content, signature, userID, details.Method)
		return out
	}

	normalized := Normalize(signature)
	details.SignatureLength = len(normalized)

	out := &Outcome{Details: details}

	res, err := s.checker.Check(ctx, content, normalized, sender)
	switch {
	case err != nil:
		// Remote failure degrades to a failed verification, never a crash
		out.Error = err.Error()
	case res.Valid:
		out.Valid = true
		out.OrgID = res.OrgID
		out.OrgName = res.OrgName
	default:
		out.Error = res.Reason
		if out.Error == "" {
			out.Error = "signature verification failed"
		}
	}
	if res != nil {
		out.Details.Check = res.Detail["check"]
		out.Mock = res.Detail["check"] == "mock"
		for k, v := range res.Detail {
			if k == "check" {
				continue
			}
			if out.Details.Extra == nil {
				out.Details.Extra = map[string]string{}
			}
			out.Details.Extra[k] = v
		}
	}

	if s.scanner != nil {
		if sc, err := s.scanner.Content(ctx, content); err == nil {
			out.Scan = sc
		} else {
			s.logger.Warn("content scan failed", "error", err)
		}
	}

	s.persist(ctx, out, content, signature, sender)
	s.logAttempt(ctx, out, content, signature, userID, details.Method)
	return out
}

// persist writes the VerifiedMessage row for a successful verification.
// Failed checks leave no message row. Writes are best-effort: a storage
// failure is logged and does not alter the outcome.
func (s *Service) persist(_ context.Context, out *Outcome, content, signature, sender string) {
	if s.store == nil || !out.Valid {
		return
	}

	now := time.Now().UTC()
	msg := model.VerifiedMessage{
		ID:          uuid.New().String(),
		OrgID:       out.OrgID,
		Content:     content,
		Signature:   Normalize(signature),
		ContentHash: out.Details.ContentHash,
		Sender:      sender,
		Status:      model.MessageVerified,
		Details:     out.Details.JSON(),
		CreatedAt:   now,
		VerifiedAt:  now,
	}

	inserted, err := s.store.SaveMessage(msg)
	if err != nil {
		s.logger.Error("persisting verified message failed", "error", err)
		return
	}
	if !inserted {
		out.Duplicate = true
		return
	}
	out.MessageID = msg.ID
}

// logAttempt records the attempt in the audit log regardless of outcome.
func (s *Service) logAttempt(_ context.Context, out *Outcome, content, signature, userID string, method model.Method) {
	if s.store == nil {
		return
	}
	s.store.LogAttempt(model.VerificationAttempt{
		ID:          uuid.New().String(),
		MessageID:   out.MessageID,
		UserID:      userID,
		Method:      method,
		Success:     out.Valid,
		Error:       out.Error,
		Details:     out.Details.JSON(),
		ContentHash: model.ContentHash(content),
		Signature:   Normalize(signature),
		CreatedAt:   time.Now().UTC(),
	})
}
