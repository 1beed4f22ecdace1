package rules

import (
	"path"

	"modgraph/internal/engine/graph"

	"github.com/gobwas/glob"
)

var (
	hookName = glob.MustCompile("use[A-Z]*")

	routeDirs  = glob.MustCompile("{pages/**,**/pages/**,app/**,**/app/**}", '/')
	routeFiles = glob.MustCompile("{route,page,layout}.{js,jsx,ts,tsx,mjs}")
	configFile = glob.MustCompile("*.config.{js,ts,mjs,cjs,mts,cts}")

	// Names Next.js reads from page, layout and route modules.
	nextExports = map[string]bool{
		"getServerSideProps":   true,
		"getStaticProps":       true,
		"getStaticPaths":       true,
		"getInitialProps":      true,
		"generateMetadata":     true,
		"generateStaticParams": true,
		"generateViewport":     true,
		"metadata":             true,
		"viewport":             true,
		"config":               true,
		"revalidate":           true,
		"dynamic":              true,
		"dynamicParams":        true,
		"runtime":              true,
		"fetchCache":           true,
		"preferredRegion":      true,
		"maxDuration":          true,
	}

	routeHandlers = map[string]bool{
		"GET": true, "POST": true, "PUT": true, "PATCH": true,
		"DELETE": true, "HEAD": true, "OPTIONS": true,
	}
)

// ReactHooksRule marks exported custom hooks (useSomething).
func ReactHooksRule() Rule {
	return &exportRule{
		name:        "ReactHooksRule",
		description: "Marks exports named use[A-Z]... as React hooks",
		match: func(_ *graph.Module, exp graph.Export) bool {
			return hookName.Match(exp.Name)
		},
	}
}

// NextJSRule marks page data functions, route segment config, route
// handlers and default exports of modules under pages/ or app/.
func NextJSRule() Rule {
	return &exportRule{
		name:        "NextJSRule",
		description: "Marks Next.js page, layout and route handler exports",
		match: func(mod *graph.Module, exp graph.Export) bool {
			id := string(mod.ID)
			if !routeDirs.Match(id) {
				return false
			}
			if exp.IsDefault() || nextExports[exp.Name] {
				return true
			}
			return routeHandlers[exp.Name] && routeFiles.Match(path.Base(id))
		},
	}
}

// ConfigFileRule marks default exports of tool config files such as
// vite.config.ts.
func ConfigFileRule() Rule {
	return &exportRule{
		name:        "ConfigFileRule",
		description: "Marks default exports of *.config.{js,ts,mjs} files",
		match: func(mod *graph.Module, exp graph.Export) bool {
			return exp.IsDefault() && configFile.Match(path.Base(string(mod.ID)))
		},
	}
}
