/*
Package httpserver runs the QKD transfer API.

New builds a chi router from a set of RouteRegistrar handlers and adds the
operational endpoints:

  - GET /livez - liveness
  - GET /readyz - readiness; 503 while draining or when the readiness check fails
  - GET /drain - stop reporting ready so load balancers move traffic away
  - GET /undrain - report ready again
  - /debug/* - pprof, when EnablePprof is set

API routes are wrapped in the go-utils request logger. Metrics are served by a
separate listener on MetricsAddr.

RunInBackground starts both listeners; Shutdown stops them within
GracefulShutdownDuration.
*/
package httpserver
