// Package auth turns a bearer credential into a verified Identity.
//
// Subpackages:
//
//   - auth/jwt      signs and verifies JWTs for a caller-defined claims type
//   - auth/authctx  carries the verified identity through context.Context
//
// The top-level package holds the contracts shared by middleware:
//
//   - Identity        the {username, userid} pair attached to a request
//   - TokenValidator  verifies a raw token and returns its Identity
//   - Gate            the PENDING, EXTRACTED, VERIFIED then AUTHORIZED or
//     REJECTED pipeline run once per request
//   - Config          mapstructure-tagged settings
//
// Configuration:
//
//	auth:
//	  jwt:
//	    secret: "${AUTH_JWT_SECRET}"
//	    method: "HS256"
//	  verify_timeout: "2s"
//	  skip_paths: ["/health", "/info"]
package auth
