package reputation

type hostScore struct {
	host  string
	score float64
}

// knownHosts is ordered: the subdomain pass returns the first entry whose
// host is contained in the candidate.
var knownHosts = []hostScore{
	// Preprint servers
	{"arxiv.org", 0.95},
	{"biorxiv.org", 0.90},
	{"medrxiv.org", 0.90},

	// Publishers and venues
	{"nature.com", 0.95},
	{"science.org", 0.95},
	{"sciencedirect.com", 0.90},
	{"springer.com", 0.90},
	{"acm.org", 0.92},
	{"ieee.org", 0.92},
	{"aaai.org", 0.92},
	{"openreview.net", 0.88},
	{"jmlr.org", 0.92},
	{"pnas.org", 0.95},

	// Universities
	{"mit.edu", 0.93},
	{"stanford.edu", 0.93},
	{"berkeley.edu", 0.93},
	{"cmu.edu", 0.93},
	{"ox.ac.uk", 0.93},
	{"cam.ac.uk", 0.93},

	// Research labs
	{"openai.com", 0.88},
	{"deepmind.com", 0.88},
	{"anthropic.com", 0.88},
	{"research.google", 0.88},
	{"research.facebook.com", 0.85},

	// Code and data
	{"github.com", 0.75},
	{"huggingface.co", 0.80},
	{"paperswithcode.com", 0.82},
	{"kaggle.com", 0.75},

	// Technology news
	{"techcrunch.com", 0.60},
	{"wired.com", 0.65},
	{"arstechnica.com", 0.70},
	{"theverge.com", 0.60},
	{"venturebeat.com", 0.55},

	// Reference
	{"wikipedia.org", 0.75},
	{"britannica.com", 0.80},
}

type patternScore struct {
	pattern string
	score   float64
}

// builtinPatterns is evaluated in order. Social and blog platforms come
// first because their hosts would otherwise fall through to the generic
// TLD rules.
var builtinPatterns = []patternScore{
	{`(twitter\.com|x\.com|facebook\.com|linkedin\.com|reddit\.com)`, 0.30},
	{`(medium\.com|substack\.com|wordpress\.com|blogger\.com)`, 0.40},
	{`\.edu$`, 0.85},
	{`\.ac\.(uk|jp|kr|au|nz|za)$`, 0.85},
	{`\.edu\.(au|cn|sg|hk|tw)$`, 0.85},
	{`\.gov$`, 0.90},
	{`\.gov\.(uk|au|ca|nz)$`, 0.90},
	{`\.org$`, 0.60},
	{`\.com$`, 0.45},
	{`\.io$`, 0.45},
	{`\.co$`, 0.40},
}

const recencyDefault = 0.15

type recencyFamily struct {
	name    string
	markers []string
	weight  float64
}

var recencyFamilies = []recencyFamily{
	{"academic", []string{"arxiv", "acm.org", "ieee.org", ".edu", ".ac."}, 0.10},
	{"news", []string{"techcrunch", "wired", "theverge", "news"}, 0.25},
	{"docs", []string{"github.com", "docs.", "documentation"}, 0.15},
	{"blog", []string{"medium", "substack", "blog"}, 0.20},
}
