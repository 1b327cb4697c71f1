package orderService

import (
	"QahwaBot/internal/api/order"
	orderRepository "QahwaBot/internal/api/order/repository"
	"QahwaBot/internal/entity"
	"QahwaBot/pkg/nlp"
	"QahwaBot/pkg/openai"
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const historyLimit = 10

// ProcessTurn runs one inbound message through the full turn pipeline:
// dedup, per-user lock, session rehydration, reset checks, intent
// resolution, the transition gate, state mutation, persistence and reply
// building. Exactly one reply comes out per accepted delivery; duplicate
// deliveries come back flagged and empty.
func (s *orderService) ProcessTurn(ctx context.Context, req order.InboundMessageRequest) (*order.TurnReply, error) {
	phoneNumber, err := s.utils.NormalizePhoneNumber(req.SenderID)
	if err != nil {
		return nil, err
	}

	if s.registry.IsDuplicate(phoneNumber, req.MessageID) {
		s.log.WithFields(logrus.Fields{
			"phone_number": phoneNumber,
			"message_id":   req.MessageID,
		}).Info("Dropped duplicate delivery")
		return &order.TurnReply{Duplicate: true}, nil
	}

	guard, err := s.registry.Acquire(ctx, phoneNumber)
	if err != nil {
		// the delivery was never processed, so its dedup record must go:
		// the gateway resends under the same message id
		s.registry.Forget(phoneNumber, req.MessageID)
		return &order.TurnReply{Text: msgBusy(s.registry.LanguageHint(phoneNumber))}, nil
	}
	defer guard.Release()

	sess, created := s.registry.GetOrCreate(phoneNumber, req.SenderName)
	defer func() { s.registry.NoteLanguage(phoneNumber, sess.Language) }()

	repo, err := s.orderRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	if created {
		if persisted, err := repo.Sessions.GetSession(ctx, phoneNumber); err == nil {
			if !persisted.Expired(time.Now(), sessionExpiry) {
				persisted.DisplayName = sess.DisplayName
				sess = &persisted
				s.registry.Put(sess)
			}
		}
	}

	text := req.UserText()
	now := time.Now()

	// Taken before any mutation; a persistence failure later in the turn
	// rolls the cached session back to this and the user just retries.
	snapshot := *sess

	if sess.CurrentStep.IsTerminal() || sess.Expired(now, sessionExpiry) {
		s.resetSession(sess)
	} else if nlp.IsGreeting(text) && !sess.CurrentStep.IsCheckout() && sess.CurrentStep != entity.StepLanguageSelect {
		// A bare greeting mid-flow starts over; during checkout it is
		// treated as ordinary input so a cart is never lost to a "hi".
		if cart, found, err := s.loadOpenOrder(ctx, repo, phoneNumber); err == nil && found {
			if err := s.cancelOrder(ctx, phoneNumber, &cart); err != nil {
				return nil, err
			}
		}
		s.resetSession(sess)
		sess.Language = entity.LanguageUnknown
		sess.CurrentStep = entity.StepLanguageSelect
	}

	menu := s.currentMenu(ctx)

	cart, _, err := s.loadOpenOrder(ctx, repo, phoneNumber)
	if err != nil {
		return s.apologize(sess, snapshot, err), nil
	}

	history, _ := s.history.GetHistory(ctx, phoneNumber, historyLimit)

	intent := s.resolver.Resolve(ctx, resolveInput{
		Text:        text,
		Session:     sess,
		Menu:        menu,
		History:     history,
		CartSummary: cartSummaryText(sess.Language, &cart),
	})

	s.log.WithFields(logrus.Fields{
		"phone_number": phoneNumber,
		"step":         sess.CurrentStep,
		"action":       intent.Action,
		"confidence":   intent.Confidence,
		"strategy":     intent.Strategy,
	}).Info("Resolved turn intent")

	reply, err := s.applyIntent(ctx, repo, sess, &cart, intent, menu, text)
	if err != nil {
		return s.apologize(sess, snapshot, err), nil
	}

	sess.UpdatedAt = time.Now()
	if sess.CurrentStep.IsTerminal() {
		// stays cached so the language survives into the next order; the
		// persisted row was already dropped with the order
	} else if err := repo.Sessions.UpsertSession(ctx, *sess); err != nil {
		s.log.WithFields(logrus.Fields{
			"phone_number": phoneNumber,
			"error":        err.Error(),
		}).Error("Failed to persist session")
	}

	// History feeds the classifier only; losing an entry is harmless.
	_ = s.history.PushHistory(ctx, phoneNumber, "user", text)
	_ = s.history.PushHistory(ctx, phoneNumber, "assistant", reply.Text)

	reply.Step = sess.CurrentStep.String()
	return reply, nil
}

// apologize rolls the cached session back to its pre-turn state and
// builds the generic failure reply. Persistence failures end here after
// the write retries are exhausted; the turn is safe to resend.
func (s *orderService) apologize(sess *entity.Session, snapshot entity.Session, err error) *order.TurnReply {
	s.log.WithFields(logrus.Fields{
		"phone_number": sess.PhoneNumber,
		"step":         snapshot.CurrentStep,
		"error":        err.Error(),
	}).Error("Turn failed on persistence, session rolled back")

	*sess = snapshot
	return &order.TurnReply{
		Text: msgApology(snapshot.Language),
		Step: snapshot.CurrentStep.String(),
	}
}

// resetSession returns the session to the start of the flow, keeping the
// identity fields. A known language skips the language step.
func (s *orderService) resetSession(sess *entity.Session) {
	sess.MainCategoryID = ""
	sess.SubCategoryID = ""
	sess.SelectedItemID = ""
	sess.OrderMode = entity.OrderModeExplore
	if sess.Language == entity.LanguageUnknown {
		sess.CurrentStep = entity.StepLanguageSelect
	} else {
		sess.CurrentStep = entity.StepCategorySelect
	}
	sess.CreatedAt = time.Now()
	sess.UpdatedAt = sess.CreatedAt
}

// applyIntent mutates session and cart for one resolved intent and builds
// the reply. Global actions are handled first; everything else must pass
// the step graph's transition gate.
func (s *orderService) applyIntent(
	ctx context.Context,
	repo orderRepository.Client,
	sess *entity.Session,
	cart *entity.Order,
	intent *entity.Intent,
	menu entity.Menu,
	text string,
) (*order.TurnReply, error) {
	switch intent.Action {
	case entity.ActionCancel:
		if err := s.cancelOrder(ctx, sess.PhoneNumber, cart); err != nil {
			return nil, err
		}
		lang := sess.Language
		sess.CurrentStep = entity.StepCancelled
		return &order.TurnReply{Text: msgCancelled(lang)}, nil

	case entity.ActionBack:
		return s.applyBack(ctx, repo, sess, cart, menu)

	case entity.ActionShowMenu:
		if !sess.CurrentStep.IsCheckout() && sess.CurrentStep != entity.StepLanguageSelect {
			sess.CurrentStep = entity.StepCategorySelect
			sess.MainCategoryID = ""
			sess.SubCategoryID = ""
			sess.SelectedItemID = ""
		}
		return s.replyForStep(sess, cart, menu), nil

	case entity.ActionHelp:
		prompt := s.replyForStep(sess, cart, menu)
		prompt.Text = msgHelp(sess.Language) + "\n\n" + prompt.Text
		return prompt, nil

	case entity.ActionSmallTalk:
		return s.applySmallTalk(ctx, sess, cart, menu, text), nil

	case entity.ActionClarify:
		return &order.TurnReply{Text: msgClarify(sess.Language, sess.CurrentStep)}, nil

	case entity.ActionMultiItemSelect:
		return s.applyMultiItem(ctx, repo, sess, cart, intent, menu)
	}

	before := *sess
	target, reply, err := s.applyStepAction(ctx, repo, sess, cart, intent, menu)
	if err != nil {
		return nil, err
	}
	if reply != nil {
		return reply, nil
	}

	if !s.steps.IsAllowed(before.CurrentStep, target) {
		// a blocked turn leaves the session exactly as it was, including
		// fields the step handler wrote before the target was known
		*sess = before
		s.log.WithFields(logrus.Fields{
			"phone_number": sess.PhoneNumber,
			"from":         sess.CurrentStep,
			"to":           target,
			"action":       intent.Action,
		}).Warn("Blocked illegal step transition")
		return &order.TurnReply{Text: msgClarify(sess.Language, sess.CurrentStep)}, nil
	}

	sess.CurrentStep = target
	return s.replyForStep(sess, cart, menu), nil
}

// applyStepAction handles the step-specific actions. It returns either a
// target step to transition to, or a ready reply when the turn should not
// advance (validation failures and terminal outcomes).
func (s *orderService) applyStepAction(
	ctx context.Context,
	repo orderRepository.Client,
	sess *entity.Session,
	cart *entity.Order,
	intent *entity.Intent,
	menu entity.Menu,
) (entity.Step, *order.TurnReply, error) {
	lang := sess.Language

	switch intent.Action {
	case entity.ActionLanguageSelect:
		sess.Language = entity.Language(intent.Field(entity.FieldLanguage))
		return entity.StepCategorySelect, nil, nil

	case entity.ActionCategorySelect:
		categoryID := intent.Field(entity.FieldCategory)
		if _, ok := menu.CategoryByID(categoryID); !ok {
			return "", &order.TurnReply{Text: msgClarify(lang, sess.CurrentStep)}, nil
		}
		sess.MainCategoryID = categoryID
		sess.SubCategoryID = ""
		if len(menu.SubCategoriesOf(categoryID)) == 0 {
			return entity.StepItemSelect, nil, nil
		}
		return entity.StepSubcategorySelect, nil, nil

	case entity.ActionSubcategorySelect:
		subCategoryID := intent.Field(entity.FieldSubcategory)
		sub, ok := menu.SubCategoryByID(subCategoryID)
		if !ok {
			return "", &order.TurnReply{Text: msgClarify(lang, sess.CurrentStep)}, nil
		}
		sess.MainCategoryID = sub.CategoryID
		sess.SubCategoryID = sub.ID
		return entity.StepItemSelect, nil, nil

	case entity.ActionItemSelect:
		itemID := intent.Field(entity.FieldItem)
		item, ok := menu.ItemByID(itemID)
		if !ok {
			_, suggestions, _ := nlp.BestMatch(intent.Field(entity.FieldItem), itemCandidates(menu, "", ""))
			var names []string
			for _, sug := range suggestions {
				names = append(names, sug.Name)
			}
			return "", &order.TurnReply{Text: msgItemNotFound(lang, names)}, nil
		}
		sess.SelectedItemID = item.ID
		sess.MainCategoryID = item.CategoryID
		sess.SubCategoryID = item.SubCategoryID

		// An utterance that carried the quantity too skips the quantity
		// prompt entirely.
		if qtyField := intent.Field(entity.FieldQuantity); qtyField != "" {
			qty, err := strconv.Atoi(qtyField)
			if err != nil || qty < entity.MinQuantity || qty > entity.MaxQuantity {
				return "", &order.TurnReply{Text: msgInvalidQuantity(lang)}, nil
			}
			if err := s.addItems(ctx, repo, cart, sess.PhoneNumber, []entity.ItemRequest{{ItemID: item.ID, Quantity: qty}}, menu); err != nil {
				return "", nil, err
			}
			sess.SelectedItemID = ""
			return entity.StepMoreItems, nil, nil
		}
		return entity.StepQuantitySelect, nil, nil

	case entity.ActionQuantitySelect:
		qty, err := strconv.Atoi(intent.Field(entity.FieldQuantity))
		if err != nil || qty < entity.MinQuantity || qty > entity.MaxQuantity {
			return "", &order.TurnReply{Text: msgInvalidQuantity(lang)}, nil
		}
		if sess.SelectedItemID == "" {
			return "", &order.TurnReply{Text: msgClarify(lang, sess.CurrentStep)}, nil
		}
		if err := s.addItems(ctx, repo, cart, sess.PhoneNumber, []entity.ItemRequest{{ItemID: sess.SelectedItemID, Quantity: qty}}, menu); err != nil {
			if err == order.ErrInvalidQuantity {
				return "", &order.TurnReply{Text: msgInvalidQuantity(lang)}, nil
			}
			return "", nil, err
		}
		sess.SelectedItemID = ""
		return entity.StepMoreItems, nil, nil

	case entity.ActionYes:
		if sess.CurrentStep == entity.StepMoreItems {
			sess.MainCategoryID = ""
			sess.SubCategoryID = ""
			return entity.StepCategorySelect, nil, nil
		}
		if sess.CurrentStep == entity.StepConfirmation {
			return s.applyConfirm(ctx, sess, cart)
		}
		return "", &order.TurnReply{Text: msgClarify(lang, sess.CurrentStep)}, nil

	case entity.ActionNo:
		if sess.CurrentStep == entity.StepMoreItems {
			if len(cart.Lines) == 0 {
				return "", &order.TurnReply{Text: msgClarify(lang, entity.StepCategorySelect)}, nil
			}
			return entity.StepServiceSelect, nil, nil
		}
		if sess.CurrentStep == entity.StepConfirmation {
			if err := s.cancelOrder(ctx, sess.PhoneNumber, cart); err != nil {
				return "", nil, err
			}
			sess.CurrentStep = entity.StepCancelled
			return "", &order.TurnReply{Text: msgCancelled(lang)}, nil
		}
		return "", &order.TurnReply{Text: msgClarify(lang, sess.CurrentStep)}, nil

	case entity.ActionServiceSelect:
		if cart.ID == "" || len(cart.Lines) == 0 {
			return "", &order.TurnReply{Text: cartSummaryText(lang, cart)}, nil
		}
		serviceType := entity.ServiceType(intent.Field(entity.FieldService))
		if serviceType != entity.ServiceDineIn && serviceType != entity.ServiceDelivery {
			return "", &order.TurnReply{Text: msgInvalidService(lang)}, nil
		}
		// Location follows on the next turn; the service choice is written
		// now so the cart survives a process restart in between.
		if err := s.retryPersist(ctx, "set_service", func() error {
			return repo.Orders.SetServiceAndLocation(ctx, cart.ID, serviceType, "")
		}); err != nil {
			return "", nil, err
		}
		cart.ServiceType = serviceType
		return entity.StepLocationSelect, nil, nil

	case entity.ActionLocationInput:
		if err := s.setServiceAndLocation(ctx, repo, cart, cart.ServiceType, intent.Field(entity.FieldLocation)); err != nil {
			if err == order.ErrInvalidLocation {
				if cart.ServiceType == entity.ServiceDineIn {
					return "", &order.TurnReply{Text: msgInvalidTable(lang)}, nil
				}
				return "", &order.TurnReply{Text: msgClarify(lang, entity.StepLocationSelect)}, nil
			}
			return "", nil, err
		}
		return entity.StepConfirmation, nil, nil

	case entity.ActionConfirm:
		if sess.CurrentStep != entity.StepConfirmation {
			return "", &order.TurnReply{Text: msgClarify(lang, sess.CurrentStep)}, nil
		}
		return s.applyConfirm(ctx, sess, cart)
	}

	return "", &order.TurnReply{Text: msgClarify(lang, sess.CurrentStep)}, nil
}

func (s *orderService) applyConfirm(ctx context.Context, sess *entity.Session, cart *entity.Order) (entity.Step, *order.TurnReply, error) {
	if err := s.finalizeOrder(ctx, sess.PhoneNumber, cart); err != nil {
		if err == order.ErrEmptyOrder {
			return "", &order.TurnReply{Text: cartSummaryText(sess.Language, cart)}, nil
		}
		return "", nil, err
	}
	sess.CurrentStep = entity.StepCompleted
	return "", &order.TurnReply{Text: msgConfirmed(sess.Language, cart)}, nil
}

// applyBack walks one step backwards, clearing what belongs to the step
// being left. Backing out of the more-items review also drops the line
// that was just added.
func (s *orderService) applyBack(
	ctx context.Context,
	repo orderRepository.Client,
	sess *entity.Session,
	cart *entity.Order,
	menu entity.Menu,
) (*order.TurnReply, error) {
	if sess.CurrentStep == entity.StepMoreItems {
		if err := s.removeLastLine(ctx, repo, cart); err != nil {
			return nil, err
		}
		sess.SelectedItemID = ""
		sess.CurrentStep = entity.StepItemSelect
		return s.replyForStep(sess, cart, menu), nil
	}

	previous := s.steps.PreviousStep(sess.CurrentStep)
	if previous == "" {
		return s.replyForStep(sess, cart, menu), nil
	}

	s.steps.ClearOnBack(sess, sess.CurrentStep)
	sess.CurrentStep = previous
	return s.replyForStep(sess, cart, menu), nil
}

// applyMultiItem handles compound utterances that name several items at
// once, optionally with a service choice riding along.
func (s *orderService) applyMultiItem(
	ctx context.Context,
	repo orderRepository.Client,
	sess *entity.Session,
	cart *entity.Order,
	intent *entity.Intent,
	menu entity.Menu,
) (*order.TurnReply, error) {
	lang := sess.Language

	var requests []entity.ItemRequest
	var missing []string
	for _, req := range intent.Items {
		if req.ItemID == "" {
			match, suggestions, ok := nlp.BestMatch(req.ItemName, itemCandidates(menu, "", ""))
			if !ok {
				for _, sug := range suggestions {
					missing = append(missing, sug.Name)
				}
				continue
			}
			req.ItemID = match.ID
		}
		requests = append(requests, req)
	}

	if len(requests) == 0 {
		return &order.TurnReply{Text: msgItemNotFound(lang, missing)}, nil
	}

	if err := s.addItems(ctx, repo, cart, sess.PhoneNumber, requests, menu); err != nil {
		switch err {
		case order.ErrInvalidQuantity:
			return &order.TurnReply{Text: msgInvalidQuantity(lang)}, nil
		case order.ErrItemNotFound:
			return &order.TurnReply{Text: msgItemNotFound(lang, missing)}, nil
		}
		return nil, err
	}

	sess.OrderMode = entity.OrderModeQuick
	sess.SelectedItemID = ""

	if serviceField := intent.Field(entity.FieldService); serviceField != "" {
		serviceType := entity.ServiceType(serviceField)
		if err := s.retryPersist(ctx, "set_service", func() error {
			return repo.Orders.SetServiceAndLocation(ctx, cart.ID, serviceType, "")
		}); err != nil {
			return nil, err
		}
		cart.ServiceType = serviceType
		sess.CurrentStep = entity.StepLocationSelect
		return s.replyForStep(sess, cart, menu), nil
	}

	sess.CurrentStep = entity.StepMoreItems
	return s.replyForStep(sess, cart, menu), nil
}

func (s *orderService) applySmallTalk(ctx context.Context, sess *entity.Session, cart *entity.Order, menu entity.Menu, text string) *order.TurnReply {
	if sess.CurrentStep == entity.StepLanguageSelect {
		return s.replyForStep(sess, cart, menu)
	}

	if s.chatGPT != nil {
		history := []openai.ConversationMessage{{Role: "user", Content: text}}
		if replyText, err := s.chatGPT.SmallTalkReply(ctx, text, string(sess.Language), history); err == nil && replyText != "" {
			prompt := s.replyForStep(sess, cart, menu)
			prompt.Text = replyText + "\n\n" + prompt.Text
			return prompt
		}
	}
	return s.replyForStep(sess, cart, menu)
}

// replyForStep renders the prompt for whatever step the session is on now.
func (s *orderService) replyForStep(sess *entity.Session, cart *entity.Order, menu entity.Menu) *order.TurnReply {
	lang := sess.Language
	var text string
	var buttons []string

	switch sess.CurrentStep {
	case entity.StepLanguageSelect:
		text, buttons = promptLanguage()
	case entity.StepCategorySelect:
		text, buttons = promptCategories(lang, menu)
	case entity.StepSubcategorySelect:
		text, buttons = promptSubcategories(lang, menu, sess.MainCategoryID)
	case entity.StepItemSelect:
		text, buttons = promptItems(lang, menu.ItemsOf(sess.MainCategoryID, sess.SubCategoryID))
	case entity.StepQuantitySelect:
		itemName := ""
		if item, ok := menu.ItemByID(sess.SelectedItemID); ok {
			itemName = item.Name(lang)
		}
		text, buttons = promptQuantity(lang, itemName)
	case entity.StepMoreItems:
		text, buttons = promptMoreItems(lang, cart)
	case entity.StepServiceSelect:
		text, buttons = promptService(lang)
	case entity.StepLocationSelect:
		text, buttons = promptLocation(lang, cart.ServiceType)
	case entity.StepConfirmation:
		text, buttons = promptConfirmation(lang, cart)
	default:
		text = msgClarify(lang, sess.CurrentStep)
	}

	return &order.TurnReply{Text: text, Buttons: buttons}
}

// --- ops surface -----------------------------------------------------------

func (s *orderService) GetSession(ctx context.Context, phoneNumber string) (*order.SessionResponse, error) {
	normalized, err := s.utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return nil, err
	}

	sess, ok := s.registry.Get(normalized)
	if !ok {
		repo, err := s.orderRepo.NewClient(false)
		if err != nil {
			return nil, err
		}
		persisted, err := repo.Sessions.GetSession(ctx, normalized)
		if err != nil {
			return nil, err
		}
		sess = &persisted
	}

	return &order.SessionResponse{
		PhoneNumber: sess.PhoneNumber,
		DisplayName: sess.DisplayName,
		CurrentStep: sess.CurrentStep.String(),
		Language:    string(sess.Language),
		OrderMode:   string(sess.OrderMode),
		UpdatedAt:   sess.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func (s *orderService) GetOpenOrder(ctx context.Context, phoneNumber string) (*order.OrderSummaryResponse, error) {
	normalized, err := s.utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return nil, err
	}

	repo, err := s.orderRepo.NewClient(false)
	if err != nil {
		return nil, err
	}
	cart, found, err := s.loadOpenOrder(ctx, repo, normalized)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, order.ErrOrderNotFound
	}

	return order.NewOrderSummaryResponse(&cart), nil
}

// RemoveCartLine drops one line from the open cart, under the same
// per-user lock the turn pipeline uses so a concurrent turn cannot see a
// half-edited cart.
func (s *orderService) RemoveCartLine(ctx context.Context, phoneNumber, itemID string) (*order.OrderSummaryResponse, error) {
	normalized, err := s.utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return nil, err
	}

	guard, err := s.registry.Acquire(ctx, normalized)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	repo, err := s.orderRepo.NewClient(false)
	if err != nil {
		return nil, err
	}
	cart, found, err := s.loadOpenOrder(ctx, repo, normalized)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, order.ErrOrderNotFound
	}

	if err := s.removeLine(ctx, repo, &cart, itemID); err != nil {
		return nil, err
	}

	return order.NewOrderSummaryResponse(&cart), nil
}

func (s *orderService) DeleteSession(ctx context.Context, phoneNumber string) error {
	normalized, err := s.utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return err
	}

	s.registry.Delete(normalized)

	repo, err := s.orderRepo.NewClient(false)
	if err != nil {
		return err
	}
	if err := repo.Sessions.DeleteSession(ctx, normalized); err != nil && err != order.ErrSessionNotFound {
		return err
	}
	_ = s.history.ClearHistory(ctx, normalized)
	return nil
}

func (s *orderService) SweepSessions(ctx context.Context) (*order.SweepResponse, error) {
	return &order.SweepResponse{Removed: s.registry.SweepExpired()}, nil
}
