package host

import (
	"errors"
	"fmt"

	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/xdr"
)

// ErrBudgetExceeded is returned by Charge when a limit would be crossed.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Budget meters CPU instructions and memory bytes consumed by one simulation
// against network-configured limits. Limits and cost tables are fixed at
// construction; only the consumption counters move.
type Budget struct {
	cpuLimit uint64
	memLimit uint64

	cpuCostParams xdr.ContractCostParams
	memCostParams xdr.ContractCostParams

	cpuConsumed uint64
	memConsumed uint64
}

// NewBudget builds a budget with explicit limits and cost tables. Prefer
// NewBudgetFromConfig outside of tests.
func NewBudget(cpuLimit, memLimit uint64, cpu, mem xdr.ContractCostParams) *Budget {
	return &Budget{
		cpuLimit:      cpuLimit,
		memLimit:      memLimit,
		cpuCostParams: cpu,
		memCostParams: mem,
	}
}

// NewBudgetFromConfig derives the budget for one call from network
// configuration settings read through the snapshot. A missing setting or a
// setting of the wrong variant means chain state is malformed or incompatible
// and is reported as an error, never papered over.
func NewBudgetFromConfig(src ledger.SnapshotSource) (*Budget, error) {
	compute, err := src.GetConfigSetting(xdr.ConfigSettingContractComputeV0)
	if err != nil {
		return nil, fmt.Errorf("reading compute settings: %w", err)
	}
	if compute.Compute == nil {
		return nil, fmt.Errorf("unexpected config setting variant %d for compute settings", compute.ID)
	}

	cpu, err := src.GetConfigSetting(xdr.ConfigSettingContractCostParamsCPUInstructions)
	if err != nil {
		return nil, fmt.Errorf("reading cpu cost params: %w", err)
	}
	if cpu.CPUCostParams == nil {
		return nil, fmt.Errorf("unexpected config setting variant %d for cpu cost params", cpu.ID)
	}

	mem, err := src.GetConfigSetting(xdr.ConfigSettingContractCostParamsMemoryBytes)
	if err != nil {
		return nil, fmt.Errorf("reading memory cost params: %w", err)
	}
	if mem.MemCostParams == nil {
		return nil, fmt.Errorf("unexpected config setting variant %d for memory cost params", mem.ID)
	}

	if compute.Compute.TxMaxInstructions < 0 {
		return nil, fmt.Errorf("negative tx instruction limit %d", compute.Compute.TxMaxInstructions)
	}
	return NewBudget(
		uint64(compute.Compute.TxMaxInstructions),
		uint64(compute.Compute.TxMemoryLimit),
		*cpu.CPUCostParams,
		*mem.MemCostParams,
	), nil
}

// Charge consumes instructions and memory. It fails without applying anything
// when either limit would be crossed.
func (b *Budget) Charge(instructions, memBytes uint64) error {
	if b.cpuConsumed+instructions > b.cpuLimit {
		return fmt.Errorf("%w: %d cpu instructions over limit %d", ErrBudgetExceeded, b.cpuConsumed+instructions, b.cpuLimit)
	}
	if b.memConsumed+memBytes > b.memLimit {
		return fmt.Errorf("%w: %d memory bytes over limit %d", ErrBudgetExceeded, b.memConsumed+memBytes, b.memLimit)
	}
	b.cpuConsumed += instructions
	b.memConsumed += memBytes
	return nil
}

// CPUInstructionsConsumed returns the instructions charged so far.
func (b *Budget) CPUInstructionsConsumed() uint64 { return b.cpuConsumed }

// MemoryBytesConsumed returns the memory bytes charged so far.
func (b *Budget) MemoryBytesConsumed() uint64 { return b.memConsumed }

// CPUInstructionsLimit returns the per-transaction instruction limit.
func (b *Budget) CPUInstructionsLimit() uint64 { return b.cpuLimit }

// MemoryBytesLimit returns the per-transaction memory limit.
func (b *Budget) MemoryBytesLimit() uint64 { return b.memLimit }

// CPUCostParams exposes the per-cost-type CPU table for the machine.
func (b *Budget) CPUCostParams() xdr.ContractCostParams { return b.cpuCostParams }

// MemCostParams exposes the per-cost-type memory table for the machine.
func (b *Budget) MemCostParams() xdr.ContractCostParams { return b.memCostParams }
