package fingerprint

// Profile is one browser identity: its User-Agent and, for Chromium-based
// browsers, the matching client-hint brand list.
type Profile struct {
	UserAgent string
	// SecChUa is empty for browsers that do not send client hints.
	SecChUa  string
	Platform string
}

// Chromium reports whether the profile sends Sec-Ch-Ua client hints.
func (p Profile) Chromium() bool {
	return p.SecChUa != ""
}

// Catalog is the set of identities a Generator draws from.
// An empty referer stands for a direct visit.
type Catalog struct {
	Profiles  []Profile
	Languages []string
	Referers  []string
}

// clone returns a deep copy so a Generator never shares slices with its caller.
func (c Catalog) clone() Catalog {
	return Catalog{
		Profiles:  append([]Profile(nil), c.Profiles...),
		Languages: append([]string(nil), c.Languages...),
		Referers:  append([]string(nil), c.Referers...),
	}
}

// DefaultCatalog returns the built-in desktop browser catalog.
// Each call returns fresh slices.
func DefaultCatalog() Catalog {
	return Catalog{
		Profiles: []Profile{
			{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
				SecChUa:   `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
				Platform:  "Windows",
			},
			{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
				SecChUa:   `"Google Chrome";v="130", "Chromium";v="130", "Not_A Brand";v="24"`,
				Platform:  "Windows",
			},
			{
				UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
				SecChUa:   `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
				Platform:  "macOS",
			},
			{
				UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
				SecChUa:   `"Google Chrome";v="130", "Chromium";v="130", "Not_A Brand";v="24"`,
				Platform:  "macOS",
			},
			{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
				SecChUa:   `"Microsoft Edge";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
				Platform:  "Windows",
			},
			{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0",
				SecChUa:   `"Microsoft Edge";v="130", "Chromium";v="130", "Not_A Brand";v="24"`,
				Platform:  "Windows",
			},
			{
				UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
				SecChUa:   `"Microsoft Edge";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
				Platform:  "macOS",
			},
			{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0",
				Platform:  "Windows",
			},
			{
				UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:130.0) Gecko/20100101 Firefox/130.0",
				Platform:  "macOS",
			},
			{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0",
				Platform:  "Windows",
			},
			{
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
				SecChUa:   `"Google Chrome";v="129", "Chromium";v="129", "Not_A Brand";v="24"`,
				Platform:  "Windows",
			},
			{
				UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
				Platform:  "macOS",
			},
		},
		Languages: []string{
			"vi-VN,vi;q=0.9,en-US;q=0.8,en;q=0.7",
			"vi-VN,vi;q=0.9,en;q=0.8",
			"vi,en-US;q=0.9,en;q=0.8",
			"vi-VN,vi;q=0.8,en-US;q=0.6,en;q=0.4",
			"en-US,en;q=0.9,vi-VN;q=0.8,vi;q=0.7",
			"vi-VN,vi;q=0.9,fr;q=0.8,en-US;q=0.7,en;q=0.6",
		},
		// Direct visits appear twice to weight them.
		Referers: []string{
			"https://www.google.com/",
			"https://www.google.com.vn/",
			"https://www.bing.com/",
			"https://masothue.com/",
			"",
			"",
		},
	}
}
