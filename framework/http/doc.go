// Package http provides the request and response values controllers work
// with. Both come in two flavours: wrapped net/http values for the HTTP
// server, and command line values for `europa call`.
//
// # Request
//
//	req := gohttp.NewRequest(r)                 // from *http.Request
//	req := gohttp.NewCLIRequest(os.Args[1:])    // "index --name world -v"
//
//	// Parameters set by routing or the command line
//	req.Controller()             // "index"
//	req.Param("id")              // route param, CLI flag or input
//	req.SetController("error")
//
//	// Input retrieval (query string + POST body)
//	name := req.Input("name", "default")
//	all  := req.All()            // map[string]string
//	val  := req.Header("Accept")
//
//	req.Method()   // "GET", "POST", ..., or "cli"
//	req.Path()     // "/api/v1/users", or "/echo/a" for `echo a`
//
//	// Container scope the request is dispatched in
//	clock := container.MustResolve[time.Time](req.Services(), "clock")
//
// # Response
//
//	res := gohttp.NewResponse(w)
//	res := gohttp.NewCLIResponse(os.Stdout)
//
//	res.Render(v)                 // string → text, anything else → 200 {"data": v}
//	res.JSON(200, data)           // raw JSON with status
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.RedirectTo("/dashboard")  // 302
//	res.Status()                  // status sent so far
package http
