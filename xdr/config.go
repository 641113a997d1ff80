package xdr

import (
	"fmt"

	xdr3 "github.com/stellar/go-xdr/xdr3"
)

// ConfigSettingID names a network configuration setting.
type ConfigSettingID int32

const (
	ConfigSettingContractComputeV0 ConfigSettingID = iota
	ConfigSettingContractLedgerCostV0
	ConfigSettingContractHistoricalDataV0
	ConfigSettingContractMetaDataV0
	ConfigSettingContractBandwidthV0
	ConfigSettingContractCostParamsCPUInstructions
	ConfigSettingContractCostParamsMemoryBytes
)

// ComputeSettings carries the network-wide execution limits.
type ComputeSettings struct {
	LedgerMaxInstructions           int64
	TxMaxInstructions               int64
	FeeRatePerInstructionsIncrement int64
	TxMemoryLimit                   uint32
}

func (c *ComputeSettings) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeHyper(c.LedgerMaxInstructions); err != nil {
		return err
	}
	if _, err := e.EncodeHyper(c.TxMaxInstructions); err != nil {
		return err
	}
	if _, err := e.EncodeHyper(c.FeeRatePerInstructionsIncrement); err != nil {
		return err
	}
	_, err := e.EncodeUint(c.TxMemoryLimit)
	return err
}

// CostParamEntry is one row of a cost model: cost = ConstTerm + LinearTerm*input.
type CostParamEntry struct {
	ConstTerm  int64
	LinearTerm int64
}

// ContractCostParams is the per-cost-type table the budget meters against.
type ContractCostParams []CostParamEntry

func (p ContractCostParams) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeUint(uint32(len(p))); err != nil {
		return err
	}
	for i := range p {
		if _, err := e.EncodeHyper(p[i].ConstTerm); err != nil {
			return err
		}
		if _, err := e.EncodeHyper(p[i].LinearTerm); err != nil {
			return err
		}
	}
	return nil
}

// ConfigSettingEntry is the configuration setting union. Only the arm matching
// ID is populated.
type ConfigSettingEntry struct {
	ID            ConfigSettingID
	Compute       *ComputeSettings
	CPUCostParams *ContractCostParams
	MemCostParams *ContractCostParams
}

// ComputeSettingEntry wraps ComputeSettings as a setting entry.
func ComputeSettingEntry(c ComputeSettings) ConfigSettingEntry {
	return ConfigSettingEntry{ID: ConfigSettingContractComputeV0, Compute: &c}
}

// CPUCostParamsEntry wraps a CPU cost table as a setting entry.
func CPUCostParamsEntry(p ContractCostParams) ConfigSettingEntry {
	return ConfigSettingEntry{ID: ConfigSettingContractCostParamsCPUInstructions, CPUCostParams: &p}
}

// MemCostParamsEntry wraps a memory cost table as a setting entry.
func MemCostParamsEntry(p ContractCostParams) ConfigSettingEntry {
	return ConfigSettingEntry{ID: ConfigSettingContractCostParamsMemoryBytes, MemCostParams: &p}
}

func (c *ConfigSettingEntry) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(c.ID)); err != nil {
		return err
	}
	switch c.ID {
	case ConfigSettingContractComputeV0:
		return c.Compute.EncodeTo(e)
	case ConfigSettingContractCostParamsCPUInstructions:
		return c.CPUCostParams.EncodeTo(e)
	case ConfigSettingContractCostParamsMemoryBytes:
		return c.MemCostParams.EncodeTo(e)
	default:
		return fmt.Errorf("xdr: unencodable config setting %d", c.ID)
	}
}
