package macro

// Indicator pairs a stored type code with its display name.
type Indicator struct {
	Type string
	Name string
}

// Family is a group of indicators fetched from one provider call and saved
// in one transaction.
type Family struct {
	Name       string
	Region     Region
	Leading    bool
	Indicators []Indicator
}

// Family names accepted by FetchAndStore.
const (
	FamilyLeadingIndicators   = "leading_indicators"
	FamilyTreasuryYields      = "treasury_yields"
	FamilyYieldCurveHistory   = "yield_curve_history"
	FamilyConsumerIndices     = "consumer_indices"
	FamilyFinancialConditions = "financial_conditions"
	FamilyPMI                 = "pmi"
	FamilyCommodities         = "commodities"
	FamilyChinaIndicators     = "china_indicators"
)

// US indicator type codes. FRED series ids are used verbatim.
const (
	TypeUSLeadingIndex  = "USALOLITOAASTSAM"
	TypeBBKLeadingIndex = "BBKMLEIX"

	TypeTreasury3M    = "DGS3MO"
	TypeTreasury2Y    = "DGS2"
	TypeTreasury10Y   = "DGS10"
	TypeSpread10Y2Y   = "SPREAD_10Y_2Y"
	TypeSpread10Y3M   = "SPREAD_10Y_3M"
	TypeConsumerCred  = "TOTALSL"
	TypeConsumerSent  = "UMCSENT"
	TypeDisposableInc = "DSPIC96"
	TypeNFCI          = "NFCI"
	TypeANFCI         = "ANFCI"

	TypeManufacturingPMI = "ISM_MAN_PMI"
	TypeServicesPMI      = "ISM_SERV_PMI"
	TypeCompositePMI     = "COMP_PMI"

	TypeCrudeOil = "CRUDE_OIL_FUT"
	TypeGold     = "GOLD_FUT"
)

// China indicator type codes.
const (
	TypeCNGDPGrowth            = "CN_GDP_GROWTH"
	TypeCNIndustrialProduction = "CN_INDUSTRIAL_PRODUCTION"
	TypeCNRetailSales          = "CN_RETAIL_SALES"
	TypeCNCPI                  = "CN_CPI"
	TypeCNPPI                  = "CN_PPI"
	TypeCNUnemployment         = "CN_UNEMPLOYMENT_RATE"
	TypeCNManufacturingPMI     = "CN_MAN_PMI"
	TypeCNNonManufacturingPMI  = "CN_NON_MAN_PMI"
	TypeCNLPR1Y                = "CN_LPR_1Y"
	TypeCNLPR5Y                = "CN_LPR_5Y"
	TypeCNFixedAssetInvestment = "CN_FIXED_ASSET_INVESTMENT"
	TypeCNExports              = "CN_EXPORTS"
	TypeCNImports              = "CN_IMPORTS"
	TypeCNSocialFinancing      = "CN_SOCIAL_FINANCING"
	TypeCNM2                   = "CN_M2"
	TypeCNHousingIndex         = "CN_HOUSING_INDEX"
	TypeCNForeignReserves      = "CN_FOREIGN_RESERVES"
)

var treasuryYields = []Indicator{
	{TypeTreasury3M, "TREASURY_3M_YIELD"},
	{TypeTreasury2Y, "TREASURY_2Y_YIELD"},
	{TypeTreasury10Y, "TREASURY_10Y_YIELD"},
	{TypeSpread10Y2Y, "TREASURY_SPREAD_10Y_2Y"},
	{TypeSpread10Y3M, "TREASURY_SPREAD_10Y_3M"},
}

var families = []Family{
	{
		Name:    FamilyLeadingIndicators,
		Region:  RegionUS,
		Leading: true,
		Indicators: []Indicator{
			{TypeUSLeadingIndex, "US_LEADING_INDEX"},
			{TypeBBKLeadingIndex, "BBK_LEADING_INDEX"},
		},
	},
	{Name: FamilyTreasuryYields, Region: RegionUS, Indicators: treasuryYields},
	{Name: FamilyYieldCurveHistory, Region: RegionUS, Indicators: treasuryYields},
	{
		Name:   FamilyConsumerIndices,
		Region: RegionUS,
		Indicators: []Indicator{
			{TypeConsumerCred, "CONSUMER_CREDIT"},
			{TypeConsumerSent, "CONSUMER_SENTIMENT"},
			{TypeDisposableInc, "DISPOSABLE_INCOME"},
		},
	},
	{
		Name:   FamilyFinancialConditions,
		Region: RegionUS,
		Indicators: []Indicator{
			{TypeNFCI, "NATIONAL_FINANCIAL_CONDITIONS"},
			{TypeANFCI, "ADJUSTED_FINANCIAL_CONDITIONS"},
		},
	},
	{
		Name:   FamilyPMI,
		Region: RegionUS,
		Indicators: []Indicator{
			{TypeManufacturingPMI, "MANUFACTURING_PMI"},
			{TypeServicesPMI, "SERVICES_PMI"},
			{TypeCompositePMI, "COMPOSITE_PMI"},
		},
	},
	{
		Name:   FamilyCommodities,
		Region: RegionUS,
		Indicators: []Indicator{
			{TypeCrudeOil, "CRUDE_OIL_FUTURES"},
			{TypeGold, "GOLD_FUTURES"},
		},
	},
	{
		Name:   FamilyChinaIndicators,
		Region: RegionChina,
		Indicators: []Indicator{
			{TypeCNGDPGrowth, "GDP_GROWTH"},
			{TypeCNIndustrialProduction, "INDUSTRIAL_PRODUCTION"},
			{TypeCNRetailSales, "RETAIL_SALES"},
			{TypeCNFixedAssetInvestment, "FIXED_ASSET_INVESTMENT"},
			{TypeCNExports, "EXPORTS_YOY"},
			{TypeCNImports, "IMPORTS_YOY"},
			{TypeCNCPI, "CPI"},
			{TypeCNPPI, "PPI"},
			{TypeCNUnemployment, "UNEMPLOYMENT_RATE"},
			{TypeCNManufacturingPMI, "MANUFACTURING_PMI"},
			{TypeCNNonManufacturingPMI, "NON_MANUFACTURING_PMI"},
			{TypeCNSocialFinancing, "SOCIAL_FINANCING"},
			{TypeCNM2, "MONEY_SUPPLY_M2"},
			{TypeCNLPR1Y, "LPR_1Y"},
			{TypeCNLPR5Y, "LPR_5Y"},
			{TypeCNHousingIndex, "HOUSING_INDEX"},
			{TypeCNForeignReserves, "FOREIGN_RESERVES"},
		},
	},
}

// Families returns the catalog in fetch order.
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// FamilyNames returns the names of all families in fetch order.
func FamilyNames() []string {
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.Name
	}
	return names
}

// LookupFamily returns the family registered under name.
func LookupFamily(name string) (Family, bool) {
	for _, f := range families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}
