/*
Package envtree loads layered .env files for the workspace that contains a
directory.

It walks up from the start directory to find the workspace root, then loads
every .env file between the root and the start directory, letting files closer
to the start directory override those further up. That makes it a good fit for
monorepos where shared settings live at the top and each package adds its own.

# Quick Start

The simplest way to use envtree is with AutoLoad in your init function:

	package main

	import "github.com/presbrey/envtree"

	func init() {
		envtree.AutoLoad()
	}

	func main() {
		// Your environment variables are now loaded
	}

# Finding the Workspace Root

The root is the nearest ancestor that holds a dependency lock file such as
package-lock.json, yarn.lock or Cargo.lock. If no ancestor has one, envtree
looks again for workspace indicators: a .git directory, nx.json, turbo.json,
go.work, a Cargo.toml with a [workspace] table, a package.json declaring
workspaces and similar. See package workspace for the full list.

# File Priority

For environment "development", each directory in the chain can contribute:

	.env.development.local   # highest
	.env.local
	.env.development
	.env                     # lowest

The local files are ignored when the environment is "test". Given

	/ws
	├── package-lock.json
	├── .env                 # X=1
	└── pkg/
	    ├── .env             # X=2
	    └── .env.local       # Y=9

loading from /ws/pkg yields X=2 and Y=9, with files applied in the order
/ws/.env, /ws/pkg/.env, /ws/pkg/.env.local.

# Loading Strategies

LoadDefault returns the result and error for explicit handling:

	if _, err := envtree.LoadDefault(); err != nil {
		log.Fatal(err)
	}

Custom options give fine-grained control:

	opts := envtree.DefaultOptions()
	opts.Environment = "production"
	opts.Prefix = "APP_"
	res, err := envtree.New(opts).Load(ctx)

Load reads files concurrently, LoadSync reads them one at a time. Both merge
in the same order.

# Process Environment

Unless NoSetEnv is set, merged variables are written to the Store only if it does
not already hold them, so values from the real environment always win. Use
MapEnv to load into an isolated table instead of the process environment.

If no workspace root is found, Load returns ErrUnavailable.
*/
package envtree
