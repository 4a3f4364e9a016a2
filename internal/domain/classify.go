package domain

// Category labels.
const (
	CategoryMedical             = "Medical"
	CategoryPublicDisorder      = "Public Disorder"
	CategoryWelfareCheck        = "Welfare Check"
	CategoryTrafficIncidents    = "Traffic Incidents"
	CategoryAlarm               = "Alarm"
	CategoryAdministrative      = "Administrative"
	CategoryCitizenAssistance   = "Citizen Assistance"
	CategoryTrafficViolations   = "Traffic Violations"
	CategoryTheft               = "Theft"
	CategoryLegal               = "Legal"
	CategoryViolentIncidents    = "Violent Incidents"
	CategoryCommunityEngagement = "Community Engagement"
	CategoryCancelledCalls      = "Cancelled Calls"
	CategoryThreats             = "Threats"
	CategoryTowRequests         = "Tow Requests"
	CategoryOther               = "Other"
)

// Priority labels.
const (
	PriorityHigh    = "High"
	PriorityMedium  = "Medium"
	PriorityLow     = "Low"
	PriorityUnknown = "Unknown"
)

// codePrefixLen is the number of leading characters of an incident type
// code that determine its category and priority.
const codePrefixLen = 3

var categoryByPrefix = map[string]string{
	"AMB": CategoryMedical,
	"DIP": CategoryPublicDisorder,
	"CKW": CategoryWelfareCheck,
	"ACC": CategoryTrafficIncidents,
	"ACI": CategoryTrafficIncidents,
	"DIS": CategoryPublicDisorder,
	"ALC": CategoryAlarm,
	"ALR": CategoryAlarm,
	"ASN": CategoryAdministrative,
	"ASC": CategoryCitizenAssistance,
	"ASD": CategoryCitizenAssistance,
	"MVC": CategoryTrafficViolations,
	"LAU": CategoryTheft,
	"WAR": CategoryLegal,
	"ASL": CategoryViolentIncidents,
	"CEP": CategoryCommunityEngagement,
	"CPP": CategoryCommunityEngagement,
	"CAN": CategoryCancelledCalls,
	"THR": CategoryThreats,
	"TOW": CategoryTowRequests,
}

// priorityBuckets is the source of truth for priorities; priorityByPrefix is
// derived from it at init.
var priorityBuckets = map[string][]string{
	PriorityHigh:   {"AMB", "ACI", "ASL", "THR"},
	PriorityMedium: {"ACC", "DIS", "DIP", "MVC"},
	PriorityLow:    {"CEP", "CPP", "CAN", "ALC", "ALR"},
}

var priorityByPrefix = func() map[string]string {
	m := make(map[string]string)
	for label, prefixes := range priorityBuckets {
		for _, p := range prefixes {
			if prev, dup := m[p]; dup {
				panic("domain: prefix " + p + " in both " + prev + " and " + label + " priority buckets")
			}
			m[p] = label
		}
	}
	return m
}()

// ClassifyCategory maps an incident type code to its category. Codes whose
// prefix is not in the table are "Other".
func ClassifyCategory(code string) string {
	if c, ok := categoryByPrefix[codePrefix(code)]; ok {
		return c
	}
	return CategoryOther
}

// ClassifyPriority maps an incident type code to its response priority.
// Codes outside the three buckets are "Unknown", including codes that do
// have a category.
func ClassifyPriority(code string) string {
	if p, ok := priorityByPrefix[codePrefix(code)]; ok {
		return p
	}
	return PriorityUnknown
}

// codePrefix returns the first three characters of code, or all of it when
// shorter.
func codePrefix(code string) string {
	r := []rune(code)
	if len(r) <= codePrefixLen {
		return code
	}
	return string(r[:codePrefixLen])
}
