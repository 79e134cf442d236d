package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StrategyKind selects one of the withdrawal strategies.
type StrategyKind string

const (
	ConstantDollar      StrategyKind = "constant-dollar"
	PercentOfPortfolio  StrategyKind = "percent-of-portfolio"
	OneOverN            StrategyKind = "one-over-n"
	VPW                 StrategyKind = "vpw"
	DynamicSWR          StrategyKind = "dynamic-swr"
	SensibleWithdrawals StrategyKind = "sensible-withdrawals"
	NinetyFivePercent   StrategyKind = "ninety-five-percent"
	GuytonKlinger       StrategyKind = "guyton-klinger"
	VanguardDynamic     StrategyKind = "vanguard-dynamic"
	Endowment           StrategyKind = "endowment"
	HebelerAutopilot    StrategyKind = "hebeler-autopilot"
	CAPEBased           StrategyKind = "cape-based"
)

// StrategyKinds lists every supported strategy in display order.
var StrategyKinds = []StrategyKind{
	ConstantDollar, PercentOfPortfolio, OneOverN, VPW, DynamicSWR, SensibleWithdrawals,
	NinetyFivePercent, GuytonKlinger, VanguardDynamic, Endowment, HebelerAutopilot, CAPEBased,
}

// StrategyParams is implemented by the per-strategy parameter records.
type StrategyParams interface {
	StrategyKind() StrategyKind
}

type ConstantDollarParams struct {
	InitialWithdrawalRate Percent `yaml:"initial_withdrawal_rate" json:"initial_withdrawal_rate"`
}

type PercentOfPortfolioParams struct {
	AnnualRate Percent `yaml:"annual_rate" json:"annual_rate"`
}

// OneOverNParams carries the planning horizon for display; the payout itself
// divides by the simulator's remaining years.
type OneOverNParams struct {
	Years int `yaml:"years" json:"years"`
}

type VPWParams struct {
	ExpectedRealReturn Percent `yaml:"expected_real_return" json:"expected_real_return"`
	DrawdownTarget     Percent `yaml:"drawdown_target" json:"drawdown_target"`
}

type DynamicSWRParams struct {
	ExpectedRateOfReturn Percent `yaml:"expected_rate_of_return" json:"expected_rate_of_return"`
}

type SensibleWithdrawalsParams struct {
	BaseWithdrawalRate   Percent `yaml:"base_withdrawal_rate" json:"base_withdrawal_rate"`
	ExtrasWithdrawalRate Percent `yaml:"extras_withdrawal_rate" json:"extras_withdrawal_rate"`
}

type NinetyFivePercentParams struct {
	AnnualWithdrawalRate Percent `yaml:"annual_withdrawal_rate" json:"annual_withdrawal_rate"`
	MinimumFloor         Percent `yaml:"minimum_floor" json:"minimum_floor"`
}

// GuytonKlingerParams configures the guardrails; GuardrailsSunset is in years.
type GuytonKlingerParams struct {
	InitialWithdrawalRate      Percent `yaml:"initial_withdrawal_rate" json:"initial_withdrawal_rate"`
	CapitalPreservationTrigger Percent `yaml:"capital_preservation_trigger" json:"capital_preservation_trigger"`
	CapitalPreservationCut     Percent `yaml:"capital_preservation_cut" json:"capital_preservation_cut"`
	ProsperityTrigger          Percent `yaml:"prosperity_trigger" json:"prosperity_trigger"`
	ProsperityRaise            Percent `yaml:"prosperity_raise" json:"prosperity_raise"`
	GuardrailsSunset           int     `yaml:"guardrails_sunset" json:"guardrails_sunset"`
}

type VanguardDynamicParams struct {
	AnnualWithdrawalRate Percent `yaml:"annual_withdrawal_rate" json:"annual_withdrawal_rate"`
	Ceiling              Percent `yaml:"ceiling" json:"ceiling"`
	Floor                Percent `yaml:"floor" json:"floor"`
}

type EndowmentParams struct {
	SpendingRate    Percent `yaml:"spending_rate" json:"spending_rate"`
	SmoothingWeight Percent `yaml:"smoothing_weight" json:"smoothing_weight"`
}

type HebelerAutopilotParams struct {
	InitialWithdrawalRate Percent `yaml:"initial_withdrawal_rate" json:"initial_withdrawal_rate"`
	PMTExpectedReturn     Percent `yaml:"pmt_expected_return" json:"pmt_expected_return"`
	PriorYearWeight       Percent `yaml:"prior_year_weight" json:"prior_year_weight"`
}

type CAPEBasedParams struct {
	BaseWithdrawalRate Percent `yaml:"base_withdrawal_rate" json:"base_withdrawal_rate"`
	CAPEWeight         float64 `yaml:"cape_weight" json:"cape_weight"`
	StartingCAPE       float64 `yaml:"starting_cape" json:"starting_cape"`
}

func (ConstantDollarParams) StrategyKind() StrategyKind      { return ConstantDollar }
func (PercentOfPortfolioParams) StrategyKind() StrategyKind  { return PercentOfPortfolio }
func (OneOverNParams) StrategyKind() StrategyKind            { return OneOverN }
func (VPWParams) StrategyKind() StrategyKind                 { return VPW }
func (DynamicSWRParams) StrategyKind() StrategyKind          { return DynamicSWR }
func (SensibleWithdrawalsParams) StrategyKind() StrategyKind { return SensibleWithdrawals }
func (NinetyFivePercentParams) StrategyKind() StrategyKind   { return NinetyFivePercent }
func (GuytonKlingerParams) StrategyKind() StrategyKind       { return GuytonKlinger }
func (VanguardDynamicParams) StrategyKind() StrategyKind     { return VanguardDynamic }
func (EndowmentParams) StrategyKind() StrategyKind           { return Endowment }
func (HebelerAutopilotParams) StrategyKind() StrategyKind    { return HebelerAutopilot }
func (CAPEBasedParams) StrategyKind() StrategyKind           { return CAPEBased }

// WithdrawalStrategyConfig is the kind-tagged strategy selection.
type WithdrawalStrategyConfig struct {
	Kind   StrategyKind   `yaml:"kind" json:"kind"`
	Params StrategyParams `yaml:"params" json:"params"`
}

// NewWithdrawalStrategy wraps typed params with their kind tag.
func NewWithdrawalStrategy(p StrategyParams) WithdrawalStrategyConfig {
	return WithdrawalStrategyConfig{Kind: p.StrategyKind(), Params: p}
}

func decodeAs[T StrategyParams](decode func(any) error) (StrategyParams, error) {
	var p T
	if err := decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeStrategyParams(kind StrategyKind, decode func(any) error) (StrategyParams, error) {
	switch kind {
	case ConstantDollar:
		return decodeAs[ConstantDollarParams](decode)
	case PercentOfPortfolio:
		return decodeAs[PercentOfPortfolioParams](decode)
	case OneOverN:
		return decodeAs[OneOverNParams](decode)
	case VPW:
		return decodeAs[VPWParams](decode)
	case DynamicSWR:
		return decodeAs[DynamicSWRParams](decode)
	case SensibleWithdrawals:
		return decodeAs[SensibleWithdrawalsParams](decode)
	case NinetyFivePercent:
		return decodeAs[NinetyFivePercentParams](decode)
	case GuytonKlinger:
		return decodeAs[GuytonKlingerParams](decode)
	case VanguardDynamic:
		return decodeAs[VanguardDynamicParams](decode)
	case Endowment:
		return decodeAs[EndowmentParams](decode)
	case HebelerAutopilot:
		return decodeAs[HebelerAutopilotParams](decode)
	case CAPEBased:
		return decodeAs[CAPEBasedParams](decode)
	}
	return nil, fmt.Errorf("unknown withdrawal strategy %q", kind)
}

// UnmarshalYAML decodes params into the struct selected by kind.
func (c *WithdrawalStrategyConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Kind   StrategyKind `yaml:"kind"`
		Params yaml.Node    `yaml:"params"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	params, err := decodeStrategyParams(raw.Kind, yamlDecoder(&raw.Params))
	if err != nil {
		return err
	}
	c.Kind, c.Params = raw.Kind, params
	return nil
}

// UnmarshalJSON decodes params into the struct selected by kind.
func (c *WithdrawalStrategyConfig) UnmarshalJSON(b []byte) error {
	var raw struct {
		Kind   StrategyKind    `json:"kind"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	params, err := decodeStrategyParams(raw.Kind, jsonDecoder(raw.Params))
	if err != nil {
		return err
	}
	c.Kind, c.Params = raw.Kind, params
	return nil
}

// DrawdownKind selects the drawdown allocator.
type DrawdownKind string

const (
	Bucket      DrawdownKind = "bucket"
	Rebalancing DrawdownKind = "rebalancing"
)

// DrawdownParams is implemented by BucketParams and RebalancingParams.
type DrawdownParams interface {
	DrawdownKind() DrawdownKind
}

// BucketParams lists asset classes in drawdown priority order.
type BucketParams struct {
	Order []AssetClass `yaml:"order" json:"order"`
}

// RebalancingParams configures the target allocation and optional glide path.
type RebalancingParams struct {
	TargetAllocation AssetWeights        `yaml:"target_allocation" json:"target_allocation"`
	GlidePathEnabled bool                `yaml:"glide_path_enabled" json:"glide_path_enabled"`
	GlidePath        []GlidePathWaypoint `yaml:"glide_path,omitempty" json:"glide_path,omitempty"`
}

// GlidePathWaypoint pins a target allocation to a simulated year (1-based).
type GlidePathWaypoint struct {
	Year       int          `yaml:"year" json:"year"`
	Allocation AssetWeights `yaml:"allocation" json:"allocation"`
}

func (BucketParams) DrawdownKind() DrawdownKind      { return Bucket }
func (RebalancingParams) DrawdownKind() DrawdownKind { return Rebalancing }

// DrawdownStrategyConfig is the kind-tagged allocator selection.
type DrawdownStrategyConfig struct {
	Kind   DrawdownKind   `yaml:"kind" json:"kind"`
	Params DrawdownParams `yaml:"params" json:"params"`
}

// NewDrawdownStrategy wraps typed params with their kind tag.
func NewDrawdownStrategy(p DrawdownParams) DrawdownStrategyConfig {
	return DrawdownStrategyConfig{Kind: p.DrawdownKind(), Params: p}
}

func decodeDrawdownParams(kind DrawdownKind, decode func(any) error) (DrawdownParams, error) {
	switch kind {
	case Bucket:
		var p BucketParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case Rebalancing:
		var p RebalancingParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown drawdown strategy %q", kind)
}

// UnmarshalYAML decodes params into the struct selected by kind.
func (c *DrawdownStrategyConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Kind   DrawdownKind `yaml:"kind"`
		Params yaml.Node    `yaml:"params"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	params, err := decodeDrawdownParams(raw.Kind, yamlDecoder(&raw.Params))
	if err != nil {
		return err
	}
	c.Kind, c.Params = raw.Kind, params
	return nil
}

// UnmarshalJSON decodes params into the struct selected by kind.
func (c *DrawdownStrategyConfig) UnmarshalJSON(b []byte) error {
	var raw struct {
		Kind   DrawdownKind    `json:"kind"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	params, err := decodeDrawdownParams(raw.Kind, jsonDecoder(raw.Params))
	if err != nil {
		return err
	}
	c.Kind, c.Params = raw.Kind, params
	return nil
}

// yamlDecoder decodes a possibly-absent params node.
func yamlDecoder(node *yaml.Node) func(any) error {
	return func(v any) error {
		if node.Kind == 0 {
			return nil
		}
		return node.Decode(v)
	}
}

// jsonDecoder decodes possibly-absent params.
func jsonDecoder(raw json.RawMessage) func(any) error {
	return func(v any) error {
		if len(raw) == 0 || string(raw) == "null" {
			return nil
		}
		return json.Unmarshal(raw, v)
	}
}
