// Package xcm builds the cross-chain programs the staking agent sends and
// hands them to an outbound transport.
package xcm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type InstructionKind string

const (
	WithdrawAsset        InstructionKind = "withdraw_asset"
	BuyExecution         InstructionKind = "buy_execution"
	SetAppendix          InstructionKind = "set_appendix"
	RefundSurplus        InstructionKind = "refund_surplus"
	DepositAsset         InstructionKind = "deposit_asset"
	Transact             InstructionKind = "transact"
	ReportTransactStatus InstructionKind = "report_transact_status"
	ReportError          InstructionKind = "report_error"
)

// Call is a remote extrinsic. Args are rendered in key order so the encoded
// form is stable.
type Call struct {
	Pallet string            `json:"pallet"`
	Method string            `json:"method"`
	Args   map[string]string `json:"args,omitempty"`
}

func NewCall(pallet, method string) Call {
	return Call{Pallet: pallet, Method: method, Args: map[string]string{}}
}

func (c Call) With(key, value string) Call {
	args := make(map[string]string, len(c.Args)+1)
	for k, v := range c.Args {
		args[k] = v
	}
	args[key] = value
	c.Args = args
	return c
}

// Encode returns the call bytes carried by Transact.
func (c Call) Encode() []byte {
	keys := make([]string, 0, len(c.Args))
	for k := range c.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+c.Args[k])
	}
	return []byte(fmt.Sprintf("%s.%s(%s)", c.Pallet, c.Method, strings.Join(parts, ",")))
}

func (c Call) String() string {
	return string(c.Encode())
}

type Instruction struct {
	Kind        InstructionKind `json:"kind"`
	Asset       types.Asset     `json:"asset,omitempty"`
	Amount      *sdkmath.Int    `json:"amount,omitempty"`
	Weight      uint64          `json:"weight,omitempty"`
	Beneficiary string          `json:"beneficiary,omitempty"`
	Call        []byte          `json:"call,omitempty"`
	QueryID     uint64          `json:"query_id,omitempty"`
	Appendix    []Instruction   `json:"appendix,omitempty"`
}

type Program struct {
	Destination  string        `json:"destination"`
	Instructions []Instruction `json:"instructions"`
}

// QueryID returns the query the program reports back to, 0 if none.
func (p Program) QueryID() uint64 {
	for _, ins := range p.Instructions {
		if ins.Kind == ReportTransactStatus || ins.Kind == ReportError {
			return ins.QueryID
		}
	}
	return 0
}

func (p Program) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Fee is what the sovereign account pays the destination for execution.
type Fee struct {
	Asset  types.Asset
	Amount sdkmath.Int
	Weight uint64
}

// feeHead withdraws the fee, buys execution and sends surplus back to refundTo
// whatever the outcome of the rest of the program.
func feeHead(fee Fee, withdraw sdkmath.Int, refundTo string) []Instruction {
	return []Instruction{
		{Kind: WithdrawAsset, Asset: fee.Asset, Amount: &withdraw},
		{Kind: BuyExecution, Asset: fee.Asset, Amount: &fee.Amount, Weight: fee.Weight},
		{Kind: SetAppendix, Appendix: []Instruction{
			{Kind: RefundSurplus},
			{Kind: DepositAsset, Asset: fee.Asset, Beneficiary: refundTo},
		}},
	}
}

// NewTransactProgram wraps call so that its dispatch status is reported to
// queryID.
func NewTransactProgram(destination string, fee Fee, refundTo string, call Call, queryID uint64) Program {
	ins := feeHead(fee, fee.Amount, refundTo)
	ins = append(ins,
		Instruction{Kind: Transact, Weight: fee.Weight, Call: call.Encode()},
		Instruction{Kind: ReportTransactStatus, QueryID: queryID},
	)
	return Program{Destination: destination, Instructions: ins}
}

// NewTransferProgram moves amount of asset to beneficiary on the destination
// and reports execution errors to queryID.
func NewTransferProgram(
	destination string, fee Fee, refundTo string, asset types.Asset, amount sdkmath.Int,
	beneficiary string, queryID uint64,
) (Program, error) {
	withdraw := fee.Amount
	if fee.Asset == asset {
		var err error
		if withdraw, err = types.CheckedAdd(fee.Amount, amount); err != nil {
			return Program{}, err
		}
	}
	ins := feeHead(fee, withdraw, refundTo)
	if fee.Asset != asset {
		ins = append(ins, Instruction{Kind: WithdrawAsset, Asset: asset, Amount: &amount})
	}
	ins = append(ins,
		Instruction{Kind: DepositAsset, Asset: asset, Amount: &amount, Beneficiary: beneficiary},
		Instruction{Kind: ReportError, QueryID: queryID},
	)
	return Program{Destination: destination, Instructions: ins}, nil
}
