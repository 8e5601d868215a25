package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Catalogue keys.
const (
	KeyLoginTitle         = "loginTitle"
	KeyEmail              = "email"
	KeyPassword           = "password"
	KeyLoginButton        = "loginButton"
	KeyFirstLoginLink     = "firstLoginLink"
	KeyInvalidCredentials = "invalidCredentials"

	KeyFirstLoginTitle = "firstLoginTitle"
	KeyFirstLoginDesc  = "firstLoginDesc"
	KeySendCode        = "sendCode"
	KeyActivationSent  = "activationSent"

	KeyVerifyTitle       = "verifyTitle"
	KeyVerifyDesc        = "verifyDesc"
	KeyVerifyButton      = "verifyButton"
	KeyInvalidOTP        = "invalidOtp"
	KeySetPasswordTitle  = "setPasswordTitle"
	KeySetPasswordDesc   = "setPasswordDesc"
	KeyNewPassword       = "newPassword"
	KeyConfirmPassword   = "confirmPassword"
	KeyFinishButton      = "finishButton"
	KeyPasswordsMismatch = "passwordsMismatch"
	KeySuccess           = "success"
	KeyFailed            = "failed"
	KeyRedirecting       = "redirecting"
	KeyRequestInFlight   = "requestInFlight"
	KeyLoginThrottled    = "loginThrottled"

	KeyAdminDashboard     = "adminDashboard"
	KeyModeratorDashboard = "moderatorDashboard"
	KeyWelcome            = "welcome"
	KeyLogout             = "logout"
	KeyForbidden          = "forbidden"
	KeyEmpty              = "empty"
	KeyError              = "error"
	KeyFacilities         = "facilities"
	KeyPendingFacilities  = "pendingFacilities"
	KeyApproved           = "approved"
	KeyPending            = "pending"
	KeyTotal              = "total"
	KeyFeedbacks          = "feedbacks"
	KeyProviders          = "providers"
	KeySaved              = "saved"
	KeyName               = "name"
	KeyPhone              = "phone"
	KeyCreateModerator    = "createModerator"
)

var messages = map[string]map[string]string{
	English: {
		KeyLoginTitle:         "Staff sign in",
		KeyEmail:              "Email",
		KeyPassword:           "Password",
		KeyLoginButton:        "Sign in",
		KeyFirstLoginLink:     "First time here? Activate your account",
		KeyInvalidCredentials: "Invalid email or not authorized",

		KeyFirstLoginTitle: "Activate your account",
		KeyFirstLoginDesc:  "Enter the email your administrator registered. We will send you a 4-digit code.",
		KeySendCode:        "Send code",
		KeyActivationSent:  "A code was sent to %s",

		KeyVerifyTitle:       "Verify your email",
		KeyVerifyDesc:        "Enter the 4-digit code sent to %s",
		KeyVerifyButton:      "Verify",
		KeyInvalidOTP:        "Please enter the 4-digit code",
		KeySetPasswordTitle:  "Set your password",
		KeySetPasswordDesc:   "Choose the password you will sign in with.",
		KeyNewPassword:       "New password",
		KeyConfirmPassword:   "Confirm password",
		KeyFinishButton:      "Finish activation",
		KeyPasswordsMismatch: "Passwords do not match",
		KeySuccess:           "Account activated successfully",
		KeyFailed:            "Something went wrong, please try again",
		KeyRedirecting:       "Redirecting…",
		KeyRequestInFlight:   "Your request is already being processed",
		KeyLoginThrottled:    "Too many failed attempts, please try again later",

		KeyAdminDashboard:     "Admin dashboard",
		KeyModeratorDashboard: "Moderator dashboard",
		KeyWelcome:            "Welcome, %s",
		KeyLogout:             "Log out",
		KeyForbidden:          "You do not have permission to view this section",
		KeyEmpty:              "Nothing to show yet",
		KeyError:              "Could not load data",
		KeyFacilities:         "Facilities",
		KeyPendingFacilities:  "Facilities awaiting approval",
		KeyApproved:           "Approved",
		KeyPending:            "Pending",
		KeyTotal:              "Total",
		KeyFeedbacks:          "Latest feedback",
		KeyProviders:          "Providers",
		KeySaved:              "Saved",
		KeyName:               "Name",
		KeyPhone:              "Phone",
		KeyCreateModerator:    "Add moderator",
	},
	Arabic: {
		KeyLoginTitle:         "تسجيل دخول الموظفين",
		KeyEmail:              "البريد الإلكتروني",
		KeyPassword:           "كلمة المرور",
		KeyLoginButton:        "تسجيل الدخول",
		KeyFirstLoginLink:     "أول مرة؟ فعّل حسابك",
		KeyInvalidCredentials: "بريد إلكتروني غير صالح أو غير مصرح لك",

		KeyFirstLoginTitle: "تفعيل الحساب",
		KeyFirstLoginDesc:  "أدخل البريد الإلكتروني المسجل من قبل المسؤول وسنرسل لك رمزًا من 4 أرقام.",
		KeySendCode:        "إرسال الرمز",
		KeyActivationSent:  "تم إرسال الرمز إلى %s",

		KeyVerifyTitle:       "تأكيد البريد الإلكتروني",
		KeyVerifyDesc:        "أدخل الرمز المكون من 4 أرقام المرسل إلى %s",
		KeyVerifyButton:      "تحقق",
		KeyInvalidOTP:        "يرجى إدخال الرمز المكون من 4 أرقام",
		KeySetPasswordTitle:  "تعيين كلمة المرور",
		KeySetPasswordDesc:   "اختر كلمة المرور التي ستستخدمها لتسجيل الدخول.",
		KeyNewPassword:       "كلمة المرور الجديدة",
		KeyConfirmPassword:   "تأكيد كلمة المرور",
		KeyFinishButton:      "إنهاء التفعيل",
		KeyPasswordsMismatch: "كلمتا المرور غير متطابقتين",
		KeySuccess:           "تم تفعيل الحساب بنجاح",
		KeyFailed:            "حدث خطأ، يرجى المحاولة مرة أخرى",
		KeyRedirecting:       "جارٍ التحويل…",
		KeyRequestInFlight:   "طلبك قيد المعالجة بالفعل",
		KeyLoginThrottled:    "محاولات فاشلة كثيرة، يرجى المحاولة لاحقًا",

		KeyAdminDashboard:     "لوحة تحكم المسؤول",
		KeyModeratorDashboard: "لوحة تحكم المشرف",
		KeyWelcome:            "مرحبًا، %s",
		KeyLogout:             "تسجيل الخروج",
		KeyForbidden:          "ليس لديك صلاحية لعرض هذا القسم",
		KeyEmpty:              "لا توجد بيانات بعد",
		KeyError:              "تعذر تحميل البيانات",
		KeyFacilities:         "المنشآت",
		KeyPendingFacilities:  "منشآت بانتظار الموافقة",
		KeyApproved:           "مقبولة",
		KeyPending:            "قيد الانتظار",
		KeyTotal:              "الإجمالي",
		KeyFeedbacks:          "أحدث التقييمات",
		KeyProviders:          "مقدمو الخدمة",
		KeySaved:              "تم الحفظ",
		KeyName:               "الاسم",
		KeyPhone:              "رقم الجوال",
		KeyCreateModerator:    "إضافة مشرف",
	},
}

var builder = newBuilder()

func newBuilder() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for locale, msgs := range messages {
		tag := tagOf(locale)
		for key, msg := range msgs {
			// Keys and messages are static, SetString cannot fail here.
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

// Printer formats catalogue keys for one locale.
type Printer struct {
	locale string
	p      *message.Printer
}

// NewPrinter returns a printer for locale. Unsupported locales print
// English.
func NewPrinter(locale string) *Printer {
	if !Supported(locale) {
		locale = Default
	}
	return &Printer{
		locale: locale,
		p:      message.NewPrinter(tagOf(locale), message.Catalog(builder)),
	}
}

// Locale returns the printer's locale code.
func (p *Printer) Locale() string { return p.locale }

// Dir returns the printer's text direction.
func (p *Printer) Dir() string { return Dir(p.locale) }

// T returns the message for key, formatted with args.
func (p *Printer) T(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// Has reports whether key exists in every locale.
func Has(key string) bool {
	for _, msgs := range messages {
		if _, ok := msgs[key]; !ok {
			return false
		}
	}
	return true
}
