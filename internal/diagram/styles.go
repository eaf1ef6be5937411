package diagram

import "strings"

// Style is a fill/stroke color pair plus the architectural category the
// label was recognized as. Styles are derived from node text on every
// transform and never stored independently.
type Style struct {
	Fill     string
	Stroke   string
	Category string
}

type styleEntry struct {
	Keyword string
	Style   Style
}

// Color pairs per category, one light fill and one saturated stroke each.
var (
	clientStyle   = Style{Fill: "#e3f2fd", Stroke: "#1976d2", Category: "client"}
	networkStyle  = Style{Fill: "#e0f7fa", Stroke: "#0097a7", Category: "network"}
	apiStyle      = Style{Fill: "#e8eaf6", Stroke: "#3949ab", Category: "api"}
	authStyle     = Style{Fill: "#fff3e0", Stroke: "#f57c00", Category: "auth"}
	serviceStyle  = Style{Fill: "#e1f5fe", Stroke: "#0277bd", Category: "service"}
	queueStyle    = Style{Fill: "#f3e5f5", Stroke: "#7b1fa2", Category: "queue"}
	cacheStyle    = Style{Fill: "#fff8e1", Stroke: "#ff8f00", Category: "cache"}
	dataStyle     = Style{Fill: "#eceff1", Stroke: "#455a64", Category: "data"}
	storageStyle  = Style{Fill: "#e8f5e9", Stroke: "#388e3c", Category: "storage"}
	externalStyle = Style{Fill: "#fafafa", Stroke: "#9e9e9e", Category: "external"}

	// Fallback when no keyword matches.
	defaultStyle = Style{Fill: "#f5f5f5", Stroke: "#757575", Category: "service"}
)

// styleTable maps label keywords to styles. Matching is first-substring-wins
// over the lowercased label, and the table's definition order is the
// priority rule: more specific keywords ("api gateway", "database") must
// stay ahead of broader ones ("api", "data") or they will never match.
var styleTable = []styleEntry{
	// Networking edge: multi-word keywords first.
	{"api gateway", networkStyle},
	{"load balancer", networkStyle},
	{"reverse proxy", networkStyle},
	{"cdn", networkStyle},
	{"dns", networkStyle},
	{"nginx", networkStyle},
	{"haproxy", networkStyle},
	{"envoy", networkStyle},
	{"ingress", networkStyle},
	{"gateway", networkStyle},
	{"proxy", networkStyle},
	{"firewall", networkStyle},
	{"waf", networkStyle},
	{"router", networkStyle},

	// Clients.
	{"web app", clientStyle},
	{"webapp", clientStyle},
	{"website", clientStyle},
	{"browser", clientStyle},
	{"frontend", clientStyle},
	{"front-end", clientStyle},
	{"mobile", clientStyle},
	{"ios", clientStyle},
	{"android", clientStyle},
	{"desktop", clientStyle},
	{"react", clientStyle},
	{"vue", clientStyle},
	{"angular", clientStyle},
	{"client", clientStyle},
	{"user", clientStyle},

	// Auth before generic service words ("auth service" should read as auth).
	{"oauth", authStyle},
	{"sso", authStyle},
	{"identity", authStyle},
	{"auth", authStyle},
	{"login", authStyle},
	{"session", authStyle},
	{"iam", authStyle},
	{"keycloak", authStyle},

	// Messaging and streams.
	{"kafka", queueStyle},
	{"rabbitmq", queueStyle},
	{"sqs", queueStyle},
	{"pubsub", queueStyle},
	{"pub/sub", queueStyle},
	{"nats", queueStyle},
	{"message broker", queueStyle},
	{"event bus", queueStyle},
	{"queue", queueStyle},
	{"broker", queueStyle},
	{"stream", queueStyle},

	// Caches before databases: "redis" is conventionally a cache here.
	{"redis", cacheStyle},
	{"memcached", cacheStyle},
	{"cache", cacheStyle},

	// Databases and analytical stores. "database" stays ahead of "data".
	{"postgres", dataStyle},
	{"mysql", dataStyle},
	{"mariadb", dataStyle},
	{"mongodb", dataStyle},
	{"mongo", dataStyle},
	{"dynamodb", dataStyle},
	{"cassandra", dataStyle},
	{"sqlite", dataStyle},
	{"oracle", dataStyle},
	{"sql server", dataStyle},
	{"elasticsearch", dataStyle},
	{"clickhouse", dataStyle},
	{"snowflake", dataStyle},
	{"bigquery", dataStyle},
	{"warehouse", dataStyle},
	{"database", dataStyle},
	{"db", dataStyle},
	{"data", dataStyle},

	// Object and file storage.
	{"s3", storageStyle},
	{"blob", storageStyle},
	{"bucket", storageStyle},
	{"object storage", storageStyle},
	{"file store", storageStyle},
	{"filesystem", storageStyle},
	{"storage", storageStyle},
	{"backup", storageStyle},

	// Third parties and observability.
	{"stripe", externalStyle},
	{"paypal", externalStyle},
	{"payment", externalStyle},
	{"billing", externalStyle},
	{"twilio", externalStyle},
	{"sendgrid", externalStyle},
	{"email", externalStyle},
	{"smtp", externalStyle},
	{"sms", externalStyle},
	{"openai", externalStyle},
	{"llm", externalStyle},
	{"prometheus", externalStyle},
	{"grafana", externalStyle},
	{"sentry", externalStyle},
	{"monitoring", externalStyle},
	{"analytics", externalStyle},
	{"third party", externalStyle},
	{"external", externalStyle},

	// API surfaces.
	{"graphql", apiStyle},
	{"grpc", apiStyle},
	{"rest", apiStyle},
	{"webhook", apiStyle},
	{"endpoint", apiStyle},
	{"api", apiStyle},

	// Generic compute, last so everything above outranks it.
	{"microservice", serviceStyle},
	{"lambda", serviceStyle},
	{"serverless", serviceStyle},
	{"worker", serviceStyle},
	{"scheduler", serviceStyle},
	{"cron", serviceStyle},
	{"job", serviceStyle},
	{"processor", serviceStyle},
	{"engine", serviceStyle},
	{"handler", serviceStyle},
	{"controller", serviceStyle},
	{"backend", serviceStyle},
	{"server", serviceStyle},
	{"service", serviceStyle},
}

// ClassifyStyle maps a node label to its style. Pure function of the text:
// repeated calls always return the same style.
func ClassifyStyle(text string) Style {
	lowered := strings.ToLower(text)
	for _, entry := range styleTable {
		if strings.Contains(lowered, entry.Keyword) {
			return entry.Style
		}
	}
	return defaultStyle
}

// StyleKeywords returns the keyword list grouped by category, in table
// order. The prompt builder embeds this so the model is steered toward
// labels the classifier will recognize.
func StyleKeywords() map[string][]string {
	out := make(map[string][]string)
	for _, entry := range styleTable {
		out[entry.Style.Category] = append(out[entry.Style.Category], entry.Keyword)
	}
	return out
}
