package jcalc

import (
	"github.com/jcalc/jcalc-go/jcalc/jdwp"
)

// Remote vocabulary. All arithmetic runs on java.math.BigInteger; the
// exception detail path uses java.lang.Throwable.
const (
	bigIntegerSig = "Ljava/math/BigInteger;"
	throwableSig  = "Ljava/lang/Throwable;"

	descValueOf    = "(J)Ljava/math/BigInteger;"
	descBinaryOp   = "(Ljava/math/BigInteger;)Ljava/math/BigInteger;"
	descToString   = "()Ljava/lang/String;"
	descGetMessage = "()Ljava/lang/String;"
)

// invoker composes the primitive protocol operations into the three
// domain-shaped operations evaluation needs. Every compound operation is a
// strict sequence of round trips; any failure aborts it whole.
type invoker struct {
	c   *conn
	log logger
}

// boxInteger materializes n inside the remote VM as a BigInteger, via the
// static valueOf(long) factory.
func (inv *invoker) boxInteger(n int64) (jdwp.ObjectID, error) {
	inv.log.Verbosef("boxing %d as remote BigInteger", n)
	ref, err := inv.c.cache.resolveClass(bigIntegerSig)
	if err != nil {
		return 0, err
	}
	valueOf, err := inv.c.cache.resolveMethod(ref, "valueOf", descValueOf)
	if err != nil {
		return 0, err
	}
	ret, exc, err := inv.c.invokeStatic(ref, valueOf, []jdwp.Value{jdwp.LongValue(n)})
	if err != nil {
		return 0, err
	}
	if exc != 0 {
		return 0, inv.invocationError("valueOf", exc)
	}
	return objectResult("valueOf", ret)
}

// invokeBinaryOp applies op to two remote BigIntegers and returns the
// resulting remote object.
func (inv *invoker) invokeBinaryOp(op Op, left, right jdwp.ObjectID) (jdwp.ObjectID, error) {
	inv.log.Verbosef("remote %s(%d, %d)", op.methodName(), left, right)
	ref, err := inv.c.cache.resolveClass(bigIntegerSig)
	if err != nil {
		return 0, err
	}
	method, err := inv.c.cache.resolveMethod(ref, op.methodName(), descBinaryOp)
	if err != nil {
		return 0, err
	}
	ret, exc, err := inv.c.invokeInstance(left, ref, method, []jdwp.Value{jdwp.ObjectValue(right)})
	if err != nil {
		return 0, err
	}
	if exc != 0 {
		return 0, inv.invocationError(op.methodName(), exc)
	}
	return objectResult(op.methodName(), ret)
}

// stringify renders a remote object as text: a zero-argument toString
// invocation followed by reading the returned string's character data.
func (inv *invoker) stringify(obj jdwp.ObjectID) (string, error) {
	inv.log.Verbosef("remote toString(%d)", obj)
	ref, err := inv.c.cache.resolveClass(bigIntegerSig)
	if err != nil {
		return "", err
	}
	// BigInteger also declares toString(int radix); the descriptor picks
	// the niladic one.
	toString, err := inv.c.cache.resolveMethod(ref, "toString", descToString)
	if err != nil {
		return "", err
	}
	ret, exc, err := inv.c.invokeInstance(obj, ref, toString, nil)
	if err != nil {
		return "", err
	}
	if exc != 0 {
		return "", inv.invocationError("toString", exc)
	}
	if ret.IsNull() || !jdwp.IsObjectTag(ret.Tag) {
		return "", newErrorf(ErrCodeProtocol, "toString returned %s instead of a string object", ret)
	}
	return inv.c.stringValue(ret.Object)
}

// invocationError builds a remote-invocation failure for the exception
// object, fetching Throwable.getMessage detail on a best-effort basis. A
// failure while fetching the detail never masks the original error.
func (inv *invoker) invocationError(method string, exc jdwp.ObjectID) error {
	if msg := inv.exceptionMessage(exc); msg != "" {
		return newErrorf(ErrCodeRemoteInvocation, "%s threw: %s", method, msg)
	}
	return newErrorf(ErrCodeRemoteInvocation, "%s threw an exception (object %d)", method, exc)
}

func (inv *invoker) exceptionMessage(exc jdwp.ObjectID) string {
	ref, err := inv.c.cache.resolveClass(throwableSig)
	if err != nil {
		inv.log.Debugf("exception detail unavailable: %v", err)
		return ""
	}
	getMessage, err := inv.c.cache.resolveMethod(ref, "getMessage", descGetMessage)
	if err != nil {
		inv.log.Debugf("exception detail unavailable: %v", err)
		return ""
	}
	ret, nested, err := inv.c.invokeInstance(exc, ref, getMessage, nil)
	if err != nil || nested != 0 || ret.IsNull() || !jdwp.IsObjectTag(ret.Tag) {
		return ""
	}
	msg, err := inv.c.stringValue(ret.Object)
	if err != nil {
		return ""
	}
	return msg
}

func objectResult(method string, ret jdwp.Value) (jdwp.ObjectID, error) {
	if !jdwp.IsObjectTag(ret.Tag) || ret.Object == 0 {
		return 0, newErrorf(ErrCodeProtocol, "%s returned %s instead of an object reference", method, ret)
	}
	return ret.Object, nil
}
