package model

// Wire DTOs for the planning API.

type ItemIn struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	Shape         string  `json:"shape"` // box | cylinder
	LengthMm      float64 `json:"lengthMm,omitempty"`
	WidthMm       float64 `json:"widthMm,omitempty"`
	HeightMm      float64 `json:"heightMm,omitempty"`
	DiameterMm    float64 `json:"diameterMm,omitempty"`
	WeightKg      float64 `json:"weightKg"`
	Quantity      int     `json:"quantity"`
	Stackable     bool    `json:"stackable"`
	Fragile       bool    `json:"fragile,omitempty"`
	Hazardous     bool    `json:"hazardous,omitempty"`
	TempControl   bool    `json:"tempControl,omitempty"`
	TargetTempC   float64 `json:"targetTempC,omitempty"`
	Nestable      bool    `json:"nestable,omitempty"`
	Orientation   string  `json:"orientation,omitempty"` // vertical | horizontal
	Priority      string  `json:"priority,omitempty"`    // high | medium | low
	Material      string  `json:"material,omitempty"`
	RouteID       string  `json:"routeId,omitempty"`
	Pickup        string  `json:"pickup,omitempty"`
	Delivery      string  `json:"delivery,omitempty"`
	DeliveryOrder int     `json:"deliveryOrder,omitempty"`
}

type ContainerTypeIn struct {
	Name      string  `json:"name"`
	LengthMm  float64 `json:"lengthMm"`
	WidthMm   float64 `json:"widthMm"`
	HeightMm  float64 `json:"heightMm"`
	MaxWeight float64 `json:"maxWeightKg"`
	MaxVolume float64 `json:"maxVolumeM3,omitempty"`
	CostPerKm float64 `json:"costPerKm,omitempty"`
}

type PlanningOptions struct {
	RouteStrategy    string `json:"routeStrategy,omitempty"`   // separate | consolidate
	LoadingSequence  string `json:"loadingSequence,omitempty"` // lifo | fifo | route | weight | priority
	AllowMixedRoutes bool   `json:"allowMixedRoutes,omitempty"`
	// MaxStackHeightMm caps the usable load height; 0 = full height.
	MaxStackHeightMm float64 `json:"maxStackHeightMm,omitempty"`
	// WeightDistributionTolerance overrides the configured CoG offset
	// tolerance (fraction of each axis) when > 0.
	WeightDistributionTolerance float64        `json:"weightDistributionTolerance,omitempty"`
	StackingRules               *StackingRules `json:"stackingRules,omitempty"`
}

// StackingRules are per-request overrides of the stacking config.
type StackingRules struct {
	MaxWeightRatio float64 `json:"maxWeightRatio,omitempty"` // heavier-above-lighter limit
	SupportRatio   float64 `json:"supportRatio,omitempty"`   // min supported base fraction
}

type PlanRequest struct {
	TenantID    string            `json:"tenantId"`
	ExternalRef string            `json:"externalRef,omitempty"`
	Items       []ItemIn          `json:"items"`
	Containers  []ContainerTypeIn `json:"containers"`
	Options     PlanningOptions   `json:"options,omitempty"`
}

type PlacementOut struct {
	UnitID     string  `json:"unitId"`
	ItemID     string  `json:"itemId"`
	Shape      string  `json:"shape"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	LengthMm   float64 `json:"lengthMm"`
	WidthMm    float64 `json:"widthMm"`
	HeightMm   float64 `json:"heightMm"`
	Horizontal bool    `json:"horizontal,omitempty"`
	NestedIn   string  `json:"nestedIn,omitempty"` // unit id of the nest host
	LoadOrder  int     `json:"loadOrder"`
	// Color is a stable per-item hex tint for downstream viewers.
	Color string `json:"color,omitempty"`
}

type WarningOut struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type ContainerOut struct {
	InstanceID    string          `json:"instanceId"`
	Type          ContainerTypeIn `json:"type"`
	Placements    []PlacementOut  `json:"placements"`
	TotalWeightKg float64         `json:"totalWeightKg"`
	TotalVolumeM3 float64         `json:"totalVolumeM3"`
	WeightUtil    float64         `json:"weightUtil"`
	VolumeUtil    float64         `json:"volumeUtil"`
	CoG           [3]float64      `json:"cog"`
	Warnings      []WarningOut    `json:"warnings,omitempty"`
	UnplacedIDs   []string        `json:"unplacedIds,omitempty"`
}

type PlanSummary struct {
	Containers    int     `json:"containers"`
	PlacedUnits   int     `json:"placedUnits"`
	UnplacedUnits int     `json:"unplacedUnits"`
	TotalWeightKg float64 `json:"totalWeightKg"`
	AvgVolumeUtil float64 `json:"avgVolumeUtil"`
	Warnings      int     `json:"warnings"`
}

type PlanOut struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenantId"`
	ExternalRef string         `json:"externalRef,omitempty"`
	Status      string         `json:"status"` // completed | completed_with_warnings
	CreatedAt   string         `json:"createdAt"`
	Containers  []ContainerOut `json:"containers"`
	Summary     PlanSummary    `json:"summary"`
}

// ValidateRequest re-checks an existing plan's geometry and rules
// without persisting anything.
type ValidateRequest struct {
	Container  ContainerTypeIn `json:"container"`
	Placements []PlacementIn   `json:"placements"`
}

type PlacementIn struct {
	Item       ItemIn  `json:"item"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Horizontal bool    `json:"horizontal,omitempty"`
	NestedIn   *int    `json:"nestedIn,omitempty"` // index into placements, nil when none
}

type ValidateResponse struct {
	Valid      bool         `json:"valid"`
	Violations []WarningOut `json:"violations,omitempty"`
}

type FleetSuggestRequest struct {
	Items      []ItemIn          `json:"items"`
	Containers []ContainerTypeIn `json:"containers"`
}

// FleetSuggestion is a sized fleet covering the requested load. Mixed
// fleets carry one entry per container type.
type FleetSuggestion struct {
	Fleet []FleetEntry `json:"fleet"`
	Count int          `json:"count"`
	Cost  float64      `json:"cost"`
}

type FleetEntry struct {
	Type  ContainerTypeIn `json:"type"`
	Count int             `json:"count"`
}

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
