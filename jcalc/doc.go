// Package jcalc evaluates arithmetic expressions on a remote JVM by
// driving its debug agent over the JDWP wire protocol.
//
// Instead of computing locally, every integer literal becomes a remote
// java.math.BigInteger and every operator a reflective method invocation
// inside the target VM; only the final toString result travels back. The
// target VM must already be listening with its debug agent and suspended,
// e.g. started with:
//
//	java -agentlib:jdwp=transport=dt_socket,server=y,suspend=y,address=5005 Main
//
// A session is one TCP connection:
//
//	client, err := jcalc.Dial(jcalc.NewClientOptions("127.0.0.1:5005"))
//	if err != nil { ... }
//	defer client.Close()
//	out, err := client.Eval("(10 + 30) * 3 / 5")
//
// Requests are strictly sequential; class and method handles are resolved
// remotely once and cached for the life of the connection.
package jcalc
