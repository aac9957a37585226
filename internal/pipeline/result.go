package pipeline

import (
	"encoding/json"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeFailed           Outcome = "failed"
)

type Step string

const (
	StepValidate Step = "validate"
	StepLookup   Step = "lookup"
	StepExtract  Step = "extract"
	StepAddress  Step = "address"
	StepLock     Step = "lock"
	StepPreorder Step = "preorder"
	StepSelect   Step = "select_shipping"
	StepCreate   Step = "create_order"
	StepRecord   Step = "record"
)

type Result struct {
	Outcome          Outcome
	OrderID          string
	OrderSN          string
	ThirdPartyUser   string
	ShippingMethodID string
	Items            []domain.CustomizationItem
	CreateResponse   json.RawMessage
	// DuplicateOrderSN is set when this run created a Wooacry order but another run had
	// already recorded a different one.
	DuplicateOrderSN string
}

// StepError names the pipeline step that failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}
