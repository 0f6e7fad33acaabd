// Package mlapi is a typed HTTP service scaffold for model-serving APIs.
// Handler types are the source of truth: request parameters, bodies and
// responses are Go types, and the framework derives body validation,
// parameter binding and an OpenAPI 3.1 document from them.
//
// The core handler signature removes http.ResponseWriter:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (Resp, error)
//
// Routes are registered with package-level generic functions:
//
//	r := mlapi.New(mlapi.WithTitle("ML API"), mlapi.WithVersion("1.0.0"))
//	mlapi.Post(r, "/items", createItem)
//
// Body parameters are classified once, at registration (see
// ParseSignature). A request type without parameter fields is itself the
// body and is validated as a schema:
//
//	type CreateItem struct {
//	    Name  string `json:"name" required:"true" minLength:"1"`
//	    Value int    `json:"value" required:"true"`
//	}
//
// Mixed requests bind path, query, header and cookie tags and take their
// body from the Body field, body:"name" fields, RawBody or Upload:
//
//	type UploadReq struct {
//	    Tenant string `header:"X-Tenant"`
//	    Files  mlapi.Upload `form:"file"`
//	}
//
// Whatever a handler returns is turned into a response by Coerce.
// Validation failures are answered with 422 before the handler runs.
//
// Middleware uses the standard func(http.Handler) http.Handler signature.
// Endpoint hooks (UseHooks) see whole requests and responses for a chosen
// set of paths and run in registration order.
package mlapi
