// Package domain models municipal police incident records and the rules
// that normalize and classify them.
//
// # Data Source
//
// Incidents come from a city open-data portal that publishes an ArcGIS
// feature layer. The layer is queried as GeoJSON:
//
//	.../FeatureServer/0/query?outFields=*&where=1%3D1&f=geojson
//
// The response is a FeatureCollection; each feature carries the incident in
// its "properties" object. Geometry is ignored.
//
// # Property Conventions
//
// Property names are title-cased with underscores: Incident_Number,
// Date_Logged, Time_Logged, Department, Incident_Type, Location, ZipCode,
// Action_Taken, Officer. Values are usually strings, but the portal has been
// observed to return ZipCode as a JSON number; every selected property is
// rendered as text. A property that is absent or null becomes "".
//
// Date and time are logged separately and in locale-dependent formats:
//
//	Date_Logged: "2024-03-01", "03/01/2024", "3/1/2024", "2024/03/01 00:00:00+00"
//	Time_Logged: "06:15", "06:15:00", "6:15 AM", "0615"
//
// They are combined into one wall-clock timestamp. If either half is missing
// or cannot be parsed the combined value resolves to [MinTimestamp] and the
// time-of-day bucket is "Unknown".
//
// # Incident Type Codes
//
// Incident_Type starts with a three-letter code, e.g. "AMB1234" for a
// medical call. Only those three characters matter for classification:
//
//	Category: fixed table, unrecognized prefixes → "Other"
//	Priority: High {AMB ACI ASL THR}, Medium {ACC DIS DIP MVC},
//	          Low {CEP CPP CAN ALC ALR}, anything else → "Unknown"
//
// The two tables are independent. A prefix with a category may have no
// priority (CKW is "Welfare Check" with priority "Unknown"); that is how the
// department defines them and is kept as is.
//
// # Time of Day
//
//	Morning   05:00–11:59
//	Afternoon 12:00–16:59
//	Evening   17:00–20:59
//	Night     21:00–04:59
//
// # Identity
//
// Incident_Number is the only identity key. Stores upsert on it with
// ON CONFLICT DO NOTHING, so re-ingesting a feed never duplicates rows and
// the first stored version of an incident wins.
package domain
