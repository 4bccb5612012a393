// Package domain models Vélib' Métropole station availability data.
//
// # Data Source
//
// Observations originate from the Paris open-data portal's real-time
// station-availability dataset ("Vélib' - Disponibilité temps réel"),
// published as a semicolon-separated, UTF-8 CSV export with an optional
// byte-order mark. The cleaner downloads the snapshot, normalizes it, and
// publishes one JSON message per station observation to the Kafka topic this
// package's mapper consumes.
//
// # Export Conventions
//
// Header drift:
//
//	The portal has renamed and re-accented columns across export vintages:
//	"Capacité de la station" vs "Capacite de la station",
//	"Nombre total vélos disponibles" vs "... velos ...", and so on.
//	Headers are normalized (trim, lowercase, whitespace → "_") and resolved
//	through a priority-ordered alias table, accented spelling first,
//	de-accented fallback second. See [NormalizeHeader].
//
// Boolean encoding:
//
//	Availability flags ("Station en fonctionnement", "Retour vélib possible")
//	carry locale-dependent tokens: oui/non, vrai/faux, true/false, 1/0.
//	[ParseTriBool] folds all of them to a tri-state *bool where nil means
//	"the feed did not say", which is not the same thing as a confirmed false.
//
// Counts:
//
//	Dock and bike counts occasionally arrive as textual decimals ("12.0").
//	[ParseInt] parses through float and truncates toward zero; anything
//	unreadable becomes nil rather than a fabricated zero.
//
// Timestamps:
//
//	The observation instant ("Actualisation de la donnée", wire key
//	"due_date") has appeared as ISO 8601 with an offset ("2026-01-22T10:00:00Z",
//	"...+02:00"), ISO without an offset, and space-separated SQL-style forms
//	with and without seconds. [ParseDueDate] accepts all of them and keeps the
//	wall-clock fields, discarding the offset: the destination column is
//	timezone-naive and two exports of the same instant must collide on the
//	primary key regardless of how the portal spelled the zone that day.
//
// Message-key drift:
//
//	Producers have emitted "station_code", "stationcode", and "stationCode";
//	"due_date", "duedate", and "last_reported"; and the GBFS-flavored count
//	names ("numbikesavailable") next to descriptive ones ("bikes_available").
//	[MapMessage] resolves each canonical field through an ordered alias list,
//	first present non-null value wins.
//
// # Identity
//
// (station_code, due_date) identifies one observation. The pair is the
// destination table's composite primary key, which is what makes redelivered
// messages harmless: the upsert overwrites the same row instead of duplicating
// it.
package domain
