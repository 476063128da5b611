package nftsaga

import "fmt"

// Step names one stage of the saga.
type Step string

const (
	StepProvisionAccount Step = "ProvisionAccount"
	StepDeployContract   Step = "DeployContract"
	StepCreateTokenType  Step = "CreateTokenType"
	StepMintToken        Step = "MintToken"
	StepTransferToken    Step = "TransferToken"
)

// Steps lists the stages in execution order.
var Steps = []Step{
	StepProvisionAccount,
	StepDeployContract,
	StepCreateTokenType,
	StepMintToken,
	StepTransferToken,
}

// StepError reports which step stopped the run. Err is the originating
// error, unchanged.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
