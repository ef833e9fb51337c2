package domain

// ExtensionCharge is the breakdown returned by an extend call.
type ExtensionCharge struct {
	OverstayBlocks   int32 `json:"overstay_blocks"`
	OverstayCharge   int32 `json:"overstay_charge"`
	ExtensionCost    int32 `json:"extension_cost"`
	AdditionalCharge int32 `json:"additional_charge"`
}
