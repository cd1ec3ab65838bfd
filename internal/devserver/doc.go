// Package devserver is an in-memory stand-in for the remote agent service.
//
// It implements the same HTTP contract the workspace client speaks:
//
//	POST /api/auth/login/         {email,password}            -> {access_token,user}
//	POST /api/auth/signup/        {full_name,email,password}  -> {message,email} or {access_token,user}
//	POST /api/auth/verify-otp/    {email,otp}                 -> {access_token,user}
//	POST /api/summarize-youtube/  {youtube_url}               -> video summary
//	POST /api/ask-from-pdf/       multipart pdf_file, query   -> {answer}
//	POST /api/resume-matcher/     multipart resume_file, job_description -> match report
//
// Agent endpoints require a bearer token issued by this server. Tokens are
// HS256 JWTs; a token whose user has been deleted is rejected with 401, which
// lets tests drive the client's global sign-out path.
//
// In verify signup mode the one-time code is written to the log instead of
// being emailed.
package devserver
