package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/kbju-bot/internal/app/classifier"
	"github.com/PabloGalante/kbju-bot/internal/domain"
	"github.com/PabloGalante/kbju-bot/internal/observability"
)

// Timeouts bound every collaborator call made while handling one event.
type Timeouts struct {
	Lookup  time.Duration
	Track   time.Duration
	Summary time.Duration
}

// DefaultTimeouts mirrors the 10s budget of the KBJU API client.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Lookup:  10 * time.Second,
		Track:   10 * time.Second,
		Summary: 10 * time.Second,
	}
}

// Service is the per-user tracking state machine.
type Service struct {
	nutrition domain.NutritionClient
	store     domain.ConversationStore
	decoder   domain.BarcodeDecoder
	spooler   domain.ImageSpooler
	meals     domain.MealLogStore

	timeouts Timeouts
	locks    *keyedMutex
	now      func() time.Time
}

// NewService wires the orchestrator. meals may be nil.
func NewService(
	nutrition domain.NutritionClient,
	store domain.ConversationStore,
	decoder domain.BarcodeDecoder,
	spooler domain.ImageSpooler,
	meals domain.MealLogStore,
	timeouts Timeouts,
) *Service {
	return &Service{
		nutrition: nutrition,
		store:     store,
		decoder:   decoder,
		spooler:   spooler,
		meals:     meals,
		timeouts:  timeouts,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// Handle runs one inbound event through the state machine. Events of the
// same user never run concurrently. The returned response is never nil;
// a non-nil error means the conversation store failed and is only worth
// logging.
func (s *Service) Handle(ctx context.Context, ev domain.Event) (*domain.Response, error) {
	unlock := s.locks.Lock(ev.UserID)
	defer unlock()

	ctx = observability.WithUserID(ctx, ev.UserID)
	in := classifier.Classify(ev)

	state, err := s.store.Get(ctx, ev.UserID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to load conversation state", "error", err)
		return &domain.Response{Kind: domain.ResponseInternalFailure, Reason: "store"}, err
	}
	state.UserID = ev.UserID

	log := observability.LoggerFromContext(ctx).With(
		"phase", state.Phase,
		"input", in.Kind.String(),
	)
	log.Info("handling event")

	switch in.Kind {
	case domain.InputSummaryRequest:
		resp := s.summary(ctx, ev.UserID)
		resp.Welcome = resp.Kind == domain.ResponseDailySummary && in.Raw == classifier.CommandStart
		return resp, nil
	case domain.InputBarcodeText:
		return s.startFlow(ctx, state, in.Barcode)
	case domain.InputPhoto:
		code, resp := s.decodePhoto(ctx, in.Image)
		if resp != nil {
			return resp, nil
		}
		return s.startFlow(ctx, state, code)
	case domain.InputUnitChoice:
		return s.chooseUnit(ctx, state, in.Unit)
	case domain.InputFreeformAmount:
		return s.enterAmount(ctx, state, in.Raw)
	case domain.InputTrackConfirmation:
		return s.track(ctx, state, ev.User)
	default:
		return &domain.Response{Kind: domain.ResponseNotUnderstood}, nil
	}
}

// startFlow resolves a barcode and (re)starts the flow, overwriting any
// previous selection.
func (s *Service) startFlow(ctx context.Context, state *domain.ConversationState, barcode string) (*domain.Response, error) {
	log := observability.LoggerFromContext(ctx).With("barcode", barcode)

	lctx, cancel := context.WithTimeout(ctx, s.timeouts.Lookup)
	defer cancel()

	product, err := s.nutrition.LookupByBarcode(lctx, barcode)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Info("product not found")
		if state.Phase != domain.PhaseIdle {
			if err := s.store.Clear(ctx, state.UserID); err != nil {
				log.Error("failed to clear conversation state", "error", err)
				return &domain.Response{Kind: domain.ResponseProductNotFound, Barcode: barcode}, err
			}
		}
		return &domain.Response{Kind: domain.ResponseProductNotFound, Barcode: barcode}, nil
	case err != nil:
		log.Error("lookup failed", "error", err)
		return transientFailure(err), nil
	case product == nil:
		log.Error("lookup returned neither product nor error")
		return &domain.Response{Kind: domain.ResponseInternalFailure, Reason: "lookup_contract"}, nil
	}

	state.Reset()
	state.Phase = domain.PhaseAwaitingUnitChoice
	state.Barcode = barcode
	state.ProductName = product.Name

	if err := s.save(ctx, state); err != nil {
		log.Error("failed to save conversation state", "error", err)
		return &domain.Response{Kind: domain.ResponseInternalFailure, Reason: "store"}, err
	}

	log.Info("product found, awaiting unit choice", "product", product.Name)
	return &domain.Response{
		Kind:    domain.ResponseProductFound,
		Barcode: barcode,
		Product: product,
	}, nil
}

// decodePhoto spools the image and decodes it. The temp file is gone
// before this returns. A non-nil response means the flow stops here and
// the conversation state stays untouched.
func (s *Service) decodePhoto(ctx context.Context, ref domain.ImageRef) (string, *domain.Response) {
	log := observability.LoggerFromContext(ctx).With("image", ref.Key())

	path, release, err := s.spooler.Spool(ctx, ref)
	if err != nil {
		log.Error("failed to fetch photo", "error", err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrTimeout) {
			return "", transientFailure(err)
		}
		return "", &domain.Response{
			Kind:         domain.ResponseDecodeFailed,
			DecodeReason: domain.DecodeSourceNotFound,
		}
	}
	defer release()

	code, err := s.decoder.Decode(ctx, path)
	if err != nil {
		if reason, ok := domain.DecodeReasonOf(err); ok {
			log.Info("no barcode in photo", "reason", reason)
			return "", &domain.Response{Kind: domain.ResponseDecodeFailed, DecodeReason: reason}
		}
		if errors.Is(err, domain.ErrDecodeTimeout) {
			log.Warn("decode timed out")
			return "", &domain.Response{Kind: domain.ResponseTransientFailure, Reason: "decode_timeout"}
		}
		log.Error("decode failed", "error", err)
		return "", &domain.Response{Kind: domain.ResponseInternalFailure, Reason: "decode"}
	}

	log.Info("barcode decoded from photo", "barcode", code)
	return code, nil
}

func (s *Service) chooseUnit(ctx context.Context, state *domain.ConversationState, unit domain.Unit) (*domain.Response, error) {
	if state.Phase == domain.PhaseIdle {
		// stale button from a finished or lost flow
		return &domain.Response{Kind: domain.ResponseSessionLost}, nil
	}
	if state.Barcode == "" {
		return s.sessionLost(ctx, state)
	}

	state.Unit = unit
	state.Amount = nil
	state.Phase = domain.PhaseAwaitingAmount

	if err := s.save(ctx, state); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to save conversation state", "error", err)
		return &domain.Response{Kind: domain.ResponseInternalFailure, Reason: "store"}, err
	}

	return &domain.Response{
		Kind:    domain.ResponseAmountPrompt,
		Barcode: state.Barcode,
		Unit:    unit,
	}, nil
}

func (s *Service) enterAmount(ctx context.Context, state *domain.ConversationState, raw string) (*domain.Response, error) {
	switch state.Phase {
	case domain.PhaseIdle:
		return &domain.Response{Kind: domain.ResponseNotUnderstood}, nil
	case domain.PhaseAwaitingUnitChoice:
		return unitPrompt(state), nil
	}

	if !state.Unit.Valid() || state.Barcode == "" {
		return s.sessionLost(ctx, state)
	}

	amount, err := ParseAmount(raw)
	if err != nil {
		observability.LoggerFromContext(ctx).Info("invalid amount", "raw", raw, "error", err)
		return &domain.Response{
			Kind:   domain.ResponseValidationError,
			Unit:   state.Unit,
			Reason: err.Error(),
		}, nil
	}

	state.Amount = &amount
	if err := s.save(ctx, state); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to save conversation state", "error", err)
		return &domain.Response{Kind: domain.ResponseInternalFailure, Reason: "store"}, err
	}

	return &domain.Response{
		Kind:    domain.ResponseReadyToConfirm,
		Barcode: state.Barcode,
		Unit:    state.Unit,
		Amount:  amount,
	}, nil
}

func (s *Service) track(ctx context.Context, state *domain.ConversationState, user domain.UserInfo) (*domain.Response, error) {
	if state.Phase == domain.PhaseAwaitingUnitChoice {
		return unitPrompt(state), nil
	}
	if state.Phase != domain.PhaseAwaitingAmount || !state.ReadyToTrack() {
		return s.sessionLost(ctx, state)
	}

	amount := *state.Amount
	req := domain.TrackRequest{
		Barcode: state.Barcode,
		User:    user,
	}
	if req.User.ID == 0 {
		req.User.ID = state.UserID
	}
	if state.Unit == domain.UnitGrams {
		req.Grams = &amount
	} else {
		req.Servings = &amount
	}

	log := observability.LoggerFromContext(ctx).With(
		"barcode", state.Barcode,
		"unit", state.Unit,
		"amount", amount,
	)

	tctx, cancel := context.WithTimeout(ctx, s.timeouts.Track)
	defer cancel()

	result, err := s.nutrition.TrackByBarcode(tctx, req)
	if err != nil {
		// state is kept so the user can confirm again
		log.Error("track failed", "error", err)
		return transientFailure(err), nil
	}
	if result == nil {
		log.Error("track returned neither result nor error")
		return &domain.Response{Kind: domain.ResponseInternalFailure, Reason: "track_contract"}, nil
	}

	resp := &domain.Response{
		Kind:    domain.ResponseTracked,
		Barcode: state.Barcode,
		Unit:    state.Unit,
		Amount:  amount,
		Tracked: result,
	}

	if err := s.store.Clear(ctx, state.UserID); err != nil {
		log.Error("failed to clear conversation state after track", "error", err)
		return resp, err
	}

	s.appendMeal(ctx, state, amount, result)

	log.Info("tracked", "date", result.Daily.Date, "kcal", result.Daily.Kcal)
	return resp, nil
}

// DailySummary fetches today's totals without touching conversation state.
func (s *Service) DailySummary(ctx context.Context, userID domain.UserID) *domain.Response {
	return s.summary(observability.WithUserID(ctx, userID), userID)
}

func (s *Service) summary(ctx context.Context, userID domain.UserID) *domain.Response {
	sctx, cancel := context.WithTimeout(ctx, s.timeouts.Summary)
	defer cancel()

	summary, err := s.nutrition.GetDailySummary(sctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return &domain.Response{Kind: domain.ResponseDailySummary}
	case err != nil:
		observability.LoggerFromContext(ctx).Error("daily summary failed", "error", err)
		return transientFailure(err)
	}
	return &domain.Response{Kind: domain.ResponseDailySummary, Summary: summary}
}

func (s *Service) sessionLost(ctx context.Context, state *domain.ConversationState) (*domain.Response, error) {
	observability.LoggerFromContext(ctx).Warn("session lost, resetting", "phase", state.Phase)

	state.Reset()
	if err := s.store.Clear(ctx, state.UserID); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to clear conversation state", "error", err)
		return &domain.Response{Kind: domain.ResponseSessionLost}, err
	}
	return &domain.Response{Kind: domain.ResponseSessionLost}, nil
}

func (s *Service) save(ctx context.Context, state *domain.ConversationState) error {
	state.UpdatedAt = s.now()
	return s.store.Set(ctx, state)
}

func (s *Service) appendMeal(ctx context.Context, state *domain.ConversationState, amount float64, result *domain.TrackResult) {
	if s.meals == nil {
		return
	}

	name := result.Name
	if name == "" {
		name = state.ProductName
	}

	entry := &domain.MealEntry{
		ID:          domain.MealEntryID(uuid.NewString()),
		UserID:      state.UserID,
		Barcode:     state.Barcode,
		ProductName: name,
		Unit:        state.Unit,
		Amount:      amount,
		Totals:      result.Daily,
		CreatedAt:   s.now(),
	}

	// the track already happened remotely; a local log failure is not the user's problem
	if err := s.meals.AppendMealEntry(ctx, entry); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to append meal entry", "error", err)
	}
}

func unitPrompt(state *domain.ConversationState) *domain.Response {
	return &domain.Response{
		Kind:    domain.ResponseUnitPrompt,
		Barcode: state.Barcode,
	}
}

func transientFailure(err error) *domain.Response {
	reason := "upstream"
	if errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	return &domain.Response{Kind: domain.ResponseTransientFailure, Reason: reason}
}
