// Package secret resolves configuration values that carry credentials:
// the token signing key, the redis password and the generative API key.
//
// Values are expanded against the environment first (ExpandEnvStrict), then
// any "secretref:<provider>:<key>" reference is answered by a Provider:
//
//	jwt_secret: secretref:file:/run/secrets/jwt_secret
//	api_key: secretref:env:OPENAI_API_KEY
//
// The "file" and "env" providers are registered in DefaultRegistry.
package secret
